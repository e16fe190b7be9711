package pipeline

import (
	"errors"
	"fmt"

	"github.com/akoval/recipeflow/internal/cleanup"
	"github.com/akoval/recipeflow/internal/llm"
	"github.com/akoval/recipeflow/internal/recipe"
)

// Kind classifies extraction, diagnosis, and repair failures. Kinds are
// persisted with failed records and shown to the diagnosis model, so the
// names are part of the stored data contract.
type Kind string

const (
	KindEmptyResponse     Kind = "EmptyResponse"
	KindEmptyAfterCleanup Kind = "EmptyAfterCleanup"
	KindInvalidJSON       Kind = "InvalidJSON"
	KindSchemaViolation   Kind = "SchemaViolation"
	KindUnparseableAmount Kind = "UnparseableAmount"
	KindNegativeAmount    Kind = "NegativeAmount"
	KindDiagnosisParse    Kind = "DiagnosisParseError"
	KindInvalidState      Kind = "InvalidState"
	KindTimeout           Kind = "Timeout"
	KindProvider          Kind = "ProviderError"
	KindConfiguration     Kind = "ConfigurationError"

	// KindInternal covers failures outside the taxonomy (store I/O, bugs).
	KindInternal Kind = "InternalError"
)

// Error is a classified pipeline failure. RawResponse preserves the model
// output exactly as received, so a diagnosis can tell "model produced bad
// JSON" apart from "model produced valid JSON with bad values".
type Error struct {
	Kind            Kind
	Message         string
	RawResponse     string
	CleanedResponse string
	Err             error
}

func (e *Error) Error() string {
	switch {
	case e.Message != "" && e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	case e.Message != "":
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	default:
		return string(e.Kind)
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Classify maps an error to its failure kind, unwrapping the sentinel errors
// of the normalizer and client packages.
func Classify(err error) Kind {
	var perr *Error
	if errors.As(err, &perr) {
		return perr.Kind
	}
	switch {
	case errors.Is(err, recipe.ErrNegativeAmount):
		return KindNegativeAmount
	case errors.Is(err, recipe.ErrUnparseableAmount):
		return KindUnparseableAmount
	case errors.Is(err, recipe.ErrSchema):
		return KindSchemaViolation
	case errors.Is(err, cleanup.ErrEmptyInput):
		return KindEmptyResponse
	case errors.Is(err, cleanup.ErrEmptyAfterCleanup):
		return KindEmptyAfterCleanup
	case errors.Is(err, llm.ErrTimeout):
		return KindTimeout
	case errors.Is(err, llm.ErrConfiguration):
		return KindConfiguration
	case errors.Is(err, llm.ErrProvider):
		return KindProvider
	default:
		return KindInternal
	}
}

// Describe unpacks an extraction error into the fields persisted with a
// failed record: kind, short message, full error chain, and the raw model
// response when one was captured.
func Describe(err error) (kind Kind, message, trace, rawResponse string) {
	kind = Classify(err)
	trace = err.Error()
	message = trace
	var perr *Error
	if errors.As(err, &perr) {
		rawResponse = perr.RawResponse
		if perr.Message != "" {
			message = perr.Message
		}
	}
	return kind, message, trace, rawResponse
}
