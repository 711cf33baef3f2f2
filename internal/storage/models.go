package storage

import (
	"database/sql"
	"time"
)

type campaignData struct {
	ID         int64
	StartTime  time.Time
	EndTime    sql.NullTime
	DeviceType string
	DeviceID   string
	Config     sql.NullString
	VoltageTHD sql.NullFloat64
	CurrentTHD sql.NullFloat64
}

type iterationData struct {
	CampaignID        int64
	Iteration         int
	Timestamp         time.Time
	Written           int64
	Available         int64
	Lost              int64
	Corrupted         int64
	AnyLost           bool
	AnyCorrupted      bool
	VoltageTHD        sql.NullFloat64
	CurrentTHD        sql.NullFloat64
	RunningVoltageTHD sql.NullFloat64
	RunningCurrentTHD sql.NullFloat64
	VoltageHarmonics  string // JSON array
	CurrentHarmonics  string // JSON array
}
