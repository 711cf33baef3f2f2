package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"math"

	"github.com/roman-kulish/power-quality/internal/spectrum"
)

func closeWithError(cl interface{ Close() error }, err *error) {
	if cErr := cl.Close(); cErr != nil && *err == nil {
		*err = cErr
	}
}

func rollbackWithError(rb interface{ Rollback() error }, err *error) {
	if cErr := rb.Rollback(); cErr != nil && cErr != sql.ErrTxDone && *err == nil {
		*err = cErr
	}
}

// toNullFloat maps NaN and infinities, which SQLite cannot hold, to NULL
func toNullFloat(v float64) sql.NullFloat64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: v, Valid: true}
}

func fromNullFloat(v sql.NullFloat64) float64 {
	if !v.Valid {
		return math.NaN()
	}
	return v.Float64
}

func fromNullFloatPtr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	return &v.Float64
}

func toConfigData(config any) (configData sql.NullString, err error) {
	if config == nil {
		return
	}

	switch c := config.(type) {
	case string:
		configData.Valid = true
		configData.String = c

	case []byte:
		configData.Valid = true
		configData.String = string(c)

	default:
		var p []byte
		if p, err = json.Marshal(config); err != nil {
			err = fmt.Errorf("marshaling config: %w", err)
			return
		}

		configData.Valid = true
		configData.String = string(p)
	}

	return
}

func toIterationData(r *spectrum.IterationRecord) (*iterationData, error) {
	voltage, err := json.Marshal(r.VoltageHarmonics)
	if err != nil {
		return nil, fmt.Errorf("marshaling voltage harmonics: %w", err)
	}
	current, err := json.Marshal(r.CurrentHarmonics)
	if err != nil {
		return nil, fmt.Errorf("marshaling current harmonics: %w", err)
	}

	return &iterationData{
		CampaignID:        r.CampaignID,
		Iteration:         r.Iteration,
		Timestamp:         r.Timestamp.UTC(),
		Written:           r.Written,
		Available:         r.Available,
		Lost:              r.Lost,
		Corrupted:         r.Corrupted,
		AnyLost:           r.AnyLost,
		AnyCorrupted:      r.AnyCorrupted,
		VoltageTHD:        toNullFloat(r.VoltageTHD),
		CurrentTHD:        toNullFloat(r.CurrentTHD),
		RunningVoltageTHD: toNullFloat(r.RunningVoltageTHD),
		RunningCurrentTHD: toNullFloat(r.RunningCurrentTHD),
		VoltageHarmonics:  string(voltage),
		CurrentHarmonics:  string(current),
	}, nil
}

func fromIterationData(d *iterationData) (*spectrum.IterationRecord, error) {
	r := spectrum.IterationRecord{
		CampaignID:        d.CampaignID,
		Iteration:         d.Iteration,
		Timestamp:         d.Timestamp,
		Written:           d.Written,
		Available:         d.Available,
		Lost:              d.Lost,
		Corrupted:         d.Corrupted,
		AnyLost:           d.AnyLost,
		AnyCorrupted:      d.AnyCorrupted,
		VoltageTHD:        fromNullFloat(d.VoltageTHD),
		CurrentTHD:        fromNullFloat(d.CurrentTHD),
		RunningVoltageTHD: fromNullFloat(d.RunningVoltageTHD),
		RunningCurrentTHD: fromNullFloat(d.RunningCurrentTHD),
	}

	if err := json.Unmarshal([]byte(d.VoltageHarmonics), &r.VoltageHarmonics); err != nil {
		return nil, fmt.Errorf("unmarshaling voltage harmonics: %w", err)
	}
	if err := json.Unmarshal([]byte(d.CurrentHarmonics), &r.CurrentHarmonics); err != nil {
		return nil, fmt.Errorf("unmarshaling current harmonics: %w", err)
	}

	return &r, nil
}

func fromCampaignData(d *campaignData) *spectrum.Campaign {
	c := spectrum.Campaign{
		ID:         d.ID,
		StartTime:  d.StartTime,
		DeviceType: d.DeviceType,
		DeviceID:   d.DeviceID,
		VoltageTHD: fromNullFloatPtr(d.VoltageTHD),
		CurrentTHD: fromNullFloatPtr(d.CurrentTHD),
	}
	if d.EndTime.Valid {
		c.EndTime = &d.EndTime.Time
	}
	if d.Config.Valid {
		c.Config = &d.Config.String
	}
	return &c
}
