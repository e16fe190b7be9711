package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/akoval/recipeflow/internal/recipe"
)

// Insert stores raw source text as a new record in the pending state.
func (s *Store) Insert(ctx context.Context, query, sourceURL, rawTitle string, rawText []string) (*Record, error) {
	textJSON, err := json.Marshal(rawText)
	if err != nil {
		return nil, fmt.Errorf("marshal raw text: %w", err)
	}

	now := timestamp(time.Now())
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO records (uuid, query, source_url, raw_title, raw_text, status, created_at, updated_at)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		uuid.NewString(), query, sourceURL, rawTitle, string(textJSON), StatusPending, now, now,
	)
	if err != nil {
		return nil, fmt.Errorf("insert record: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(ctx, id)
}

// GetByID loads a single record.
func (s *Store) GetByID(ctx context.Context, id int64) (*Record, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+recordColumns+` FROM records WHERE id = ?`, id)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("record %d: %w", id, ErrNotFound)
	}
	return rec, err
}

// GetByUUID loads a single record by its external token.
func (s *Store) GetByUUID(ctx context.Context, token string) (*Record, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+recordColumns+` FROM records WHERE uuid = ?`, token)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("record %s: %w", token, ErrNotFound)
	}
	return rec, err
}

// List returns records matching the filter, oldest first (insertion order).
func (s *Store) List(ctx context.Context, filter ListFilter) ([]*Record, error) {
	var clauses []string
	var args []any

	if filter.Status != "" {
		clauses = append(clauses, "status = ?")
		args = append(args, filter.Status)
	}
	if !filter.From.IsZero() {
		clauses = append(clauses, "created_at >= ?")
		args = append(args, timestamp(filter.From))
	}
	if !filter.To.IsZero() {
		clauses = append(clauses, "created_at <= ?")
		args = append(args, timestamp(filter.To))
	}

	query := `SELECT ` + recordColumns + ` FROM records`
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY id"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	defer rows.Close()

	var records []*Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// MarkSucceeded stores the validated payload and moves the record to
// succeeded, clearing any prior failure fields. Allowed from pending and
// failed only.
func (s *Store) MarkSucceeded(ctx context.Context, id int64, rec *recipe.Recipe) error {
	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal recipe: %w", err)
	}

	now := timestamp(time.Now())
	res, err := s.db.ExecContext(ctx,
		`UPDATE records
         SET status = ?, recipe_json = ?,
             error_kind = NULL, error_message = NULL, error_trace = NULL, raw_response = NULL,
             extracted_at = ?, updated_at = ?
         WHERE id = ? AND status IN (?, ?)`,
		StatusSucceeded, string(payload), now, now, id, StatusPending, StatusFailed,
	)
	if err != nil {
		return fmt.Errorf("mark record %d succeeded: %w", id, err)
	}
	return s.checkTransition(ctx, res, id, StatusSucceeded)
}

// MarkFailed stores the failure detail and moves the record to failed,
// replacing any prior failure fields and clearing a stale payload. Allowed
// from pending and failed only.
func (s *Store) MarkFailed(ctx context.Context, id int64, kind, message, trace, rawResponse string) error {
	now := timestamp(time.Now())
	res, err := s.db.ExecContext(ctx,
		`UPDATE records
         SET status = ?, recipe_json = NULL,
             error_kind = ?, error_message = ?, error_trace = ?, raw_response = ?,
             updated_at = ?
         WHERE id = ? AND status IN (?, ?)`,
		StatusFailed, kind, message, trace, nullableString(rawResponse), now, id, StatusPending, StatusFailed,
	)
	if err != nil {
		return fmt.Errorf("mark record %d failed: %w", id, err)
	}
	return s.checkTransition(ctx, res, id, StatusFailed)
}

// Delete removes a record and its diagnoses. Deletion is an administrative
// action; the pipeline itself never deletes records.
func (s *Store) Delete(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM records WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete record %d: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("record %d: %w", id, ErrNotFound)
	}
	return nil
}

// checkTransition distinguishes "no such record" from "transition forbidden"
// when a guarded update matched no rows.
func (s *Store) checkTransition(ctx context.Context, res sql.Result, id int64, target Status) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected > 0 {
		return nil
	}
	current, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}
	return fmt.Errorf("record %d: %s -> %s: %w", id, current.Status, target, ErrInvalidTransition)
}

const recordColumns = `id, uuid, query, source_url, raw_title, raw_text, status,
    recipe_json, error_kind, error_message, error_trace, raw_response,
    created_at, updated_at, extracted_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*Record, error) {
	var (
		rec         Record
		rawText     string
		recipeJSON  sql.NullString
		errorKind   sql.NullString
		errorMsg    sql.NullString
		errorTrace  sql.NullString
		rawResponse sql.NullString
		createdAt   string
		updatedAt   string
		extractedAt sql.NullString
	)

	err := row.Scan(
		&rec.ID, &rec.UUID, &rec.Query, &rec.SourceURL, &rec.RawTitle, &rawText, &rec.Status,
		&recipeJSON, &errorKind, &errorMsg, &errorTrace, &rawResponse,
		&createdAt, &updatedAt, &extractedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan record: %w", err)
	}

	if err := json.Unmarshal([]byte(rawText), &rec.RawText); err != nil {
		return nil, fmt.Errorf("unmarshal raw text: %w", err)
	}
	if recipeJSON.Valid && recipeJSON.String != "" {
		var r recipe.Recipe
		if err := json.Unmarshal([]byte(recipeJSON.String), &r); err != nil {
			return nil, fmt.Errorf("unmarshal recipe payload: %w", err)
		}
		rec.Recipe = &r
	}
	rec.ErrorKind = errorKind.String
	rec.ErrorMessage = errorMsg.String
	rec.ErrorTrace = errorTrace.String
	rec.RawResponse = rawResponse.String
	rec.CreatedAt = parseTimestamp(createdAt)
	rec.UpdatedAt = parseTimestamp(updatedAt)
	if extractedAt.Valid && extractedAt.String != "" {
		t := parseTimestamp(extractedAt.String)
		rec.ExtractedAt = &t
	}
	return &rec, nil
}

func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
