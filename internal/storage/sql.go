package storage

import (
	_ "embed"
)

var (
	//go:embed schema.sql
	initSchemaSQL string

	//go:embed indexes.sql
	initIndexesSQL string
)

const (
	insertCampaignSQL = `
INSERT INTO campaigns (
                       start_time,
                       device_type,
                       device_id,
                       config)
VALUES (CURRENT_TIMESTAMP, ?, ?, ?)`

	finishCampaignSQL = `
UPDATE campaigns
SET
    end_time = CURRENT_TIMESTAMP,
    voltage_thd = ?,
    current_thd = ?
WHERE
    id = ?`

	selectCampaignSQL = `
SELECT
    id,
    start_time,
    end_time,
    device_type,
    device_id,
    config,
    voltage_thd,
    current_thd
FROM campaigns
WHERE
    id = ?`

	insertIterationSQL = `
INSERT INTO iterations (campaign_id,
                        iteration,
                        timestamp,
                        written,
                        available,
                        lost,
                        corrupted,
                        any_lost,
                        any_corrupted,
                        voltage_thd,
                        current_thd,
                        running_voltage_thd,
                        running_current_thd,
                        voltage_harmonics,
                        current_harmonics)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	selectIterationsSQL = `
SELECT
    campaign_id,
    iteration,
    timestamp,
    written,
    available,
    lost,
    corrupted,
    any_lost,
    any_corrupted,
    voltage_thd,
    current_thd,
    running_voltage_thd,
    running_current_thd,
    voltage_harmonics,
    current_harmonics
FROM iterations
WHERE
    campaign_id = ?
    AND iteration BETWEEN ? AND ?
ORDER BY iteration`
)
