package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// AppendDiagnosis stores a diagnosis for a record and sets d.ID.
func (s *Store) AppendDiagnosis(ctx context.Context, d *Diagnosis) error {
	report, err := json.Marshal(d.Report)
	if err != nil {
		return fmt.Errorf("marshal diagnosis report: %w", err)
	}

	var reextract any
	if d.Reextract != nil {
		data, err := json.Marshal(d.Reextract)
		if err != nil {
			return fmt.Errorf("marshal reextract outcome: %w", err)
		}
		reextract = string(data)
	}

	if d.CreatedAt.IsZero() {
		d.CreatedAt = time.Now().UTC()
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO diagnoses (record_id, report_json, summary, model, reextract_json, created_at)
         VALUES (?, ?, ?, ?, ?, ?)`,
		d.RecordID, string(report), nullableString(d.Summary), nullableString(d.Model),
		reextract, timestamp(d.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("insert diagnosis: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("last insert id: %w", err)
	}
	d.ID = id
	return nil
}

// DiagnosesByRecord returns all diagnoses for a record, newest first.
func (s *Store) DiagnosesByRecord(ctx context.Context, recordID int64) ([]*Diagnosis, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, record_id, report_json, summary, model, reextract_json, created_at
         FROM diagnoses WHERE record_id = ?
         ORDER BY created_at DESC, id DESC`,
		recordID,
	)
	if err != nil {
		return nil, fmt.Errorf("list diagnoses: %w", err)
	}
	defer rows.Close()

	var diagnoses []*Diagnosis
	for rows.Next() {
		var (
			d         Diagnosis
			report    string
			summary   sql.NullString
			model     sql.NullString
			reextract sql.NullString
			createdAt string
		)
		if err := rows.Scan(&d.ID, &d.RecordID, &report, &summary, &model, &reextract, &createdAt); err != nil {
			return nil, fmt.Errorf("scan diagnosis: %w", err)
		}
		if err := json.Unmarshal([]byte(report), &d.Report); err != nil {
			return nil, fmt.Errorf("unmarshal diagnosis report: %w", err)
		}
		if reextract.Valid && reextract.String != "" {
			var outcome ReextractOutcome
			if err := json.Unmarshal([]byte(reextract.String), &outcome); err != nil {
				return nil, fmt.Errorf("unmarshal reextract outcome: %w", err)
			}
			d.Reextract = &outcome
		}
		d.Summary = summary.String
		d.Model = model.String
		d.CreatedAt = parseTimestamp(createdAt)
		diagnoses = append(diagnoses, &d)
	}
	return diagnoses, rows.Err()
}

// GetDiagnosis loads one diagnosis belonging to the given record.
func (s *Store) GetDiagnosis(ctx context.Context, recordID, diagnosisID int64) (*Diagnosis, error) {
	diagnoses, err := s.DiagnosesByRecord(ctx, recordID)
	if err != nil {
		return nil, err
	}
	for _, d := range diagnoses {
		if d.ID == diagnosisID {
			return d, nil
		}
	}
	return nil, fmt.Errorf("diagnosis %d for record %d: %w", diagnosisID, recordID, ErrNotFound)
}
