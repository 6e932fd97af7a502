package clickhouse

import (
	"context"
	"fmt"
	"time"

	"edu-voting/internal/domain"
	"edu-voting/internal/storage"
)

// TallySnapshotStore implements storage.TallySnapshotStore using ClickHouse.
type TallySnapshotStore struct {
	conn *Conn
}

// NewTallySnapshotStore creates a new TallySnapshotStore.
func NewTallySnapshotStore(conn *Conn) *TallySnapshotStore {
	return &TallySnapshotStore{conn: conn}
}

// Compile-time interface check.
var _ storage.TallySnapshotStore = (*TallySnapshotStore)(nil)

// InsertBulk adds multiple points. Fails entire batch on duplicate
// (contract_address, candidate_id, timestamp_ms).
func (s *TallySnapshotStore) InsertBulk(ctx context.Context, points []*domain.TallyPoint) (err error) {
	if len(points) == 0 {
		return nil
	}

	type key struct {
		contract    string
		candidateID uint64
		timestampMs int64
	}
	seen := make(map[key]struct{}, len(points))
	for _, p := range points {
		if err := storage.ValidateTallyPoint(p); err != nil {
			return err
		}
		k := key{domain.CanonicalAddress(p.ContractAddress), p.CandidateID, p.TimestampMs}
		if _, exists := seen[k]; exists {
			return storage.ErrDuplicateKey
		}
		seen[k] = struct{}{}
	}

	start := time.Now()
	defer func() { observe("insert_tally_snapshots", start, err) }()

	// MergeTree does not enforce uniqueness; check existing rows first.
	for k := range seen {
		exists, err := s.exists(ctx, k.contract, k.candidateID, k.timestampMs)
		if err != nil {
			return fmt.Errorf("check exists: %w", err)
		}
		if exists {
			return storage.ErrDuplicateKey
		}
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO tally_snapshots (
			contract_address, candidate_id, name, vote_count, timestamp_ms
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, p := range points {
		err = batch.Append(
			domain.CanonicalAddress(p.ContractAddress),
			p.CandidateID,
			p.Name,
			p.VoteCount,
			uint64(p.TimestampMs),
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}

	return nil
}

// GetByCandidateID retrieves all points for a candidate, ordered by timestamp ASC.
func (s *TallySnapshotStore) GetByCandidateID(ctx context.Context, contract string, candidateID uint64) (points []*domain.TallyPoint, err error) {
	start := time.Now()
	defer func() { observe("get_tally_by_candidate", start, err) }()

	query := `
		SELECT contract_address, candidate_id, name, vote_count, timestamp_ms
		FROM tally_snapshots
		WHERE contract_address = ? AND candidate_id = ?
		ORDER BY timestamp_ms ASC
	`

	rows, err := s.conn.Query(ctx, query, domain.CanonicalAddress(contract), candidateID)
	if err != nil {
		return nil, fmt.Errorf("query by candidate id: %w", err)
	}
	defer rows.Close()

	return scanTallyPoints(rows)
}

// GetByTimeRange retrieves points for a candidate within [start, end] (inclusive).
func (s *TallySnapshotStore) GetByTimeRange(ctx context.Context, contract string, candidateID uint64, start, end int64) (points []*domain.TallyPoint, err error) {
	began := time.Now()
	defer func() { observe("get_tally_by_time_range", began, err) }()

	query := `
		SELECT contract_address, candidate_id, name, vote_count, timestamp_ms
		FROM tally_snapshots
		WHERE contract_address = ? AND candidate_id = ? AND timestamp_ms >= ? AND timestamp_ms <= ?
		ORDER BY timestamp_ms ASC
	`

	rows, err := s.conn.Query(ctx, query, domain.CanonicalAddress(contract), candidateID, uint64(start), uint64(end))
	if err != nil {
		return nil, fmt.Errorf("query by time range: %w", err)
	}
	defer rows.Close()

	return scanTallyPoints(rows)
}

// GetLatest retrieves the most recent point per candidate from the tally_latest view.
func (s *TallySnapshotStore) GetLatest(ctx context.Context, contract string) (points []*domain.TallyPoint, err error) {
	start := time.Now()
	defer func() { observe("get_tally_latest", start, err) }()

	query := `
		SELECT contract_address, candidate_id, name, vote_count, timestamp_ms
		FROM tally_latest
		WHERE contract_address = ?
		ORDER BY candidate_id ASC
	`

	rows, err := s.conn.Query(ctx, query, domain.CanonicalAddress(contract))
	if err != nil {
		return nil, fmt.Errorf("query latest: %w", err)
	}
	defer rows.Close()

	return scanTallyPoints(rows)
}

// exists checks if a point with the given key exists.
func (s *TallySnapshotStore) exists(ctx context.Context, contract string, candidateID uint64, timestampMs int64) (bool, error) {
	query := `
		SELECT count(*) FROM tally_snapshots
		WHERE contract_address = ? AND candidate_id = ? AND timestamp_ms = ?
	`

	var count uint64
	err := s.conn.QueryRow(ctx, query, contract, candidateID, uint64(timestampMs)).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// scanTallyPoints scans multiple rows.
func scanTallyPoints(rows chRows) ([]*domain.TallyPoint, error) {
	var points []*domain.TallyPoint

	for rows.Next() {
		var p domain.TallyPoint
		var timestampMs uint64

		err := rows.Scan(
			&p.ContractAddress, &p.CandidateID, &p.Name, &p.VoteCount, &timestampMs,
		)
		if err != nil {
			return nil, fmt.Errorf("scan tally snapshot row: %w", err)
		}

		p.TimestampMs = int64(timestampMs)
		points = append(points, &p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tally snapshot rows: %w", err)
	}

	return points, nil
}
