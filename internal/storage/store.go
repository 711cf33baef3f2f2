package storage

import (
	"context"

	"github.com/roman-kulish/power-quality/internal/spectrum"
)

// Store persists campaigns and their per-iteration results
type Store interface {
	CreateCampaign(ctx context.Context, deviceType, deviceID string, config any) (campaignID int64, err error)
	StoreIteration(ctx context.Context, record *spectrum.IterationRecord) error
	FinishCampaign(ctx context.Context, campaignID int64, voltageTHD, currentTHD float64) error
	Campaign(ctx context.Context, id int64) (*spectrum.Campaign, error)
	ReadIterations(ctx context.Context, campaignID int64, opts ...ReaderOption) (*IterationReader, error)
	Close() error
}

var _ Store = (*SqliteStore)(nil)
