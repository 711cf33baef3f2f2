package storage

import (
	"context"
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roman-kulish/power-quality/internal/spectrum"
)

func newTestStore(t *testing.T) *SqliteStore {
	t.Helper()

	store := NewSqliteStore(filepath.Join(t.TempDir(), "campaign.sqlite"))
	require.NoError(t, store.Init())
	t.Cleanup(func() { _ = store.Close() })

	return store
}

func iteration(campaignID int64, i int) *spectrum.IterationRecord {
	return &spectrum.IterationRecord{
		CampaignID:        campaignID,
		Iteration:         i,
		Timestamp:         time.Date(2026, 10, 15, 12, i, 0, 0, time.UTC),
		Written:           4000,
		Available:         4000,
		VoltageTHD:        2.5,
		CurrentTHD:        33.1,
		RunningVoltageTHD: 2.4,
		RunningCurrentTHD: 33.0,
		VoltageHarmonics:  spectrum.HarmonicVector{325, 0.1, 4.8},
		CurrentHarmonics:  spectrum.HarmonicVector{14.1, 0.01, 4.2},
	}
}

func TestSqliteStore_Campaign(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	id, err := store.CreateCampaign(ctx, "simulator", "-1", map[string]any{"sampleRate": 4000})
	require.NoError(t, err)

	campaign, err := store.Campaign(ctx, id)
	require.NoError(t, err)

	assert.Equal(t, id, campaign.ID)
	assert.Equal(t, "simulator", campaign.DeviceType)
	assert.Equal(t, "-1", campaign.DeviceID)
	require.NotNil(t, campaign.Config)
	assert.JSONEq(t, `{"sampleRate":4000}`, *campaign.Config)
	assert.Nil(t, campaign.EndTime)
	assert.Nil(t, campaign.VoltageTHD)

	require.NoError(t, store.FinishCampaign(ctx, id, 2.25, math.NaN()))

	campaign, err = store.Campaign(ctx, id)
	require.NoError(t, err)

	assert.NotNil(t, campaign.EndTime)
	require.NotNil(t, campaign.VoltageTHD)
	assert.Equal(t, 2.25, *campaign.VoltageTHD)
	assert.Nil(t, campaign.CurrentTHD, "NaN is stored as NULL")

	assert.Error(t, store.FinishCampaign(ctx, id+100, 1, 1))
}

func TestSqliteStore_Iterations(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	id, err := store.CreateCampaign(ctx, "dwf", "0", nil)
	require.NoError(t, err)

	for i := 1; i <= 3; i++ {
		record := iteration(id, i)
		if i == 2 {
			record.Lost = 100
			record.AnyLost = true
			record.CurrentTHD = math.NaN()
		}
		require.NoError(t, store.StoreIteration(ctx, record))
	}

	assert.Error(t, store.StoreIteration(ctx, iteration(id, 3)), "duplicate iteration")
	assert.Error(t, store.StoreIteration(ctx, nil))

	reader, err := store.ReadIterations(ctx, id)
	require.NoError(t, err)
	defer reader.Close()

	var got []*spectrum.IterationRecord
	for reader.Next(ctx) {
		got = append(got, reader.Current())
	}
	require.NoError(t, reader.Error())
	require.Len(t, got, 3)

	assert.Equal(t, 1, got[0].Iteration)
	assert.Equal(t, iteration(id, 1).Timestamp, got[0].Timestamp.UTC())
	assert.Equal(t, spectrum.HarmonicVector{325, 0.1, 4.8}, got[0].VoltageHarmonics)
	assert.Equal(t, 33.1, got[0].CurrentTHD)

	assert.True(t, got[1].AnyLost)
	assert.Equal(t, int64(100), got[1].Lost)
	assert.True(t, math.IsNaN(got[1].CurrentTHD))
	assert.False(t, got[2].AnyLost)
}

func TestSqliteStore_ReadIterationsRange(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	id, err := store.CreateCampaign(ctx, "dwf", "0", `{"raw":true}`)
	require.NoError(t, err)

	for i := 1; i <= 5; i++ {
		require.NoError(t, store.StoreIteration(ctx, iteration(id, i)))
	}

	reader, err := store.ReadIterations(ctx, id, WithIterationRange(2, 4))
	require.NoError(t, err)
	defer reader.Close()

	var iterations []int
	for reader.Next(ctx) {
		iterations = append(iterations, reader.Current().Iteration)
	}
	require.NoError(t, reader.Error())
	assert.Equal(t, []int{2, 3, 4}, iterations)

	_, err = store.ReadIterations(ctx, id, WithIterationRange(4, 2))
	assert.Error(t, err)
}

func TestSqliteStore_CloseIsIdempotent(t *testing.T) {
	store := NewSqliteStore(filepath.Join(t.TempDir(), "campaign.sqlite"))
	require.NoError(t, store.Init())

	assert.NoError(t, store.Close())
	assert.NoError(t, store.Close())
}

func TestSqliteStore_InitFailure(t *testing.T) {
	store := NewSqliteStore(filepath.Join(t.TempDir(), "missing", "campaign.sqlite"))
	assert.Error(t, store.Init())
}
