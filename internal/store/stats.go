package store

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Stats aggregates record counts, optionally restricted to a creation-time
// range. Zero-value bounds mean unbounded.
func (s *Store) Stats(ctx context.Context, from, to time.Time) (*Stats, error) {
	var clauses []string
	var args []any
	if !from.IsZero() {
		clauses = append(clauses, "created_at >= ?")
		args = append(args, timestamp(from))
	}
	if !to.IsZero() {
		clauses = append(clauses, "created_at <= ?")
		args = append(args, timestamp(to))
	}
	where := ""
	if len(clauses) > 0 {
		where = " WHERE " + strings.Join(clauses, " AND ")
	}

	stats := &Stats{
		ByStatus:    make(map[Status]int),
		ByErrorKind: make(map[string]int),
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT status, COUNT(*) FROM records`+where+` GROUP BY status`, args...)
	if err != nil {
		return nil, fmt.Errorf("count by status: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var status Status
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("scan status count: %w", err)
		}
		stats.ByStatus[status] = count
		stats.Total += count
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	kindClauses := append([]string{"error_kind IS NOT NULL"}, clauses...)
	kindRows, err := s.db.QueryContext(ctx,
		`SELECT error_kind, COUNT(*) FROM records WHERE `+strings.Join(kindClauses, " AND ")+` GROUP BY error_kind`,
		args...)
	if err != nil {
		return nil, fmt.Errorf("count by error kind: %w", err)
	}
	defer kindRows.Close()
	for kindRows.Next() {
		var kind string
		var count int
		if err := kindRows.Scan(&kind, &count); err != nil {
			return nil, fmt.Errorf("scan error kind count: %w", err)
		}
		stats.ByErrorKind[kind] = count
	}
	return stats, kindRows.Err()
}
