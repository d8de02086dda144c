package store

import "fmt"

// MetricsRun is one persisted health snapshot.
type MetricsRun struct {
	RunID   string
	TakenAt string
	Payload []byte // snapshot JSON
}

// AppendMetrics inserts a snapshot and prunes the history to the newest
// keep rows.
func (s *Store) AppendMetrics(run MetricsRun, keep int) error {
	at := run.TakenAt
	if at == "" {
		at = nowUTC()
	}
	if _, err := s.db.Exec(
		"INSERT INTO metrics_history(run_id, taken_at, payload) VALUES(?, ?, ?)",
		run.RunID, at, run.Payload,
	); err != nil {
		return fmt.Errorf("append metrics: %w", err)
	}
	if keep > 0 {
		if _, err := s.db.Exec(`
			DELETE FROM metrics_history WHERE id NOT IN (
				SELECT id FROM metrics_history ORDER BY id DESC LIMIT ?
			)`, keep,
		); err != nil {
			return fmt.Errorf("prune metrics: %w", err)
		}
	}
	return nil
}

// RecentMetrics returns up to n snapshots, newest first.
func (s *Store) RecentMetrics(n int) ([]MetricsRun, error) {
	rows, err := s.db.Query(
		"SELECT run_id, taken_at, payload FROM metrics_history ORDER BY id DESC LIMIT ?", n,
	)
	if err != nil {
		return nil, fmt.Errorf("read metrics history: %w", err)
	}
	defer rows.Close()

	var out []MetricsRun
	for rows.Next() {
		var r MetricsRun
		if err := rows.Scan(&r.RunID, &r.TakenAt, &r.Payload); err != nil {
			return nil, fmt.Errorf("scan metrics row: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
