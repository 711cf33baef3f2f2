package storage

import (
	"context"
	"database/sql"
	"fmt"
	"math"

	"github.com/roman-kulish/power-quality/internal/spectrum"
)

// ReaderOption configures an IterationReader
type ReaderOption func(*IterationReader)

// WithIterationRange limits the reader to iterations first..last, both inclusive
func WithIterationRange(first, last int) ReaderOption {
	return func(r *IterationReader) {
		r.first = first
		r.last = last
	}
}

// IterationReader iterates over stored iterations of a campaign:
//
//	for reader.Next(ctx) {
//		record := reader.Current()
//	}
//	if err := reader.Error(); err != nil { ... }
type IterationReader struct {
	rows    *sql.Rows
	first   int
	last    int
	current *spectrum.IterationRecord
	err     error
}

func newIterationReader(ctx context.Context, db *sql.DB, campaignID int64, opts ...ReaderOption) (*IterationReader, error) {
	r := IterationReader{
		first: 1,
		last:  math.MaxInt32,
	}

	for _, opt := range opts {
		opt(&r)
	}

	if r.first > r.last {
		return nil, fmt.Errorf("invalid iteration range: %d > %d", r.first, r.last)
	}

	rows, err := db.QueryContext(ctx, selectIterationsSQL, campaignID, r.first, r.last)
	if err != nil {
		return nil, fmt.Errorf("querying iterations: %w", err)
	}
	r.rows = rows

	return &r, nil
}

// Next advances to the next iteration. It returns false at the end or on error.
func (r *IterationReader) Next(ctx context.Context) bool {
	if r.err != nil {
		return false
	}
	if err := ctx.Err(); err != nil {
		r.err = err
		return false
	}
	if !r.rows.Next() {
		r.err = r.rows.Err()
		return false
	}

	var data iterationData
	if err := r.rows.Scan(
		&data.CampaignID,
		&data.Iteration,
		&data.Timestamp,
		&data.Written,
		&data.Available,
		&data.Lost,
		&data.Corrupted,
		&data.AnyLost,
		&data.AnyCorrupted,
		&data.VoltageTHD,
		&data.CurrentTHD,
		&data.RunningVoltageTHD,
		&data.RunningCurrentTHD,
		&data.VoltageHarmonics,
		&data.CurrentHarmonics,
	); err != nil {
		r.err = fmt.Errorf("scanning iteration: %w", err)
		return false
	}

	record, err := fromIterationData(&data)
	if err != nil {
		r.err = err
		return false
	}

	r.current = record
	return true
}

// Current returns the iteration loaded by the last successful Next
func (r *IterationReader) Current() *spectrum.IterationRecord {
	return r.current
}

// Error returns the first error encountered while iterating
func (r *IterationReader) Error() error {
	return r.err
}

func (r *IterationReader) Close() error {
	return r.rows.Close()
}
