// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package store

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/relabs-tech/imu_monitor/internal/imu"
)

// Readings stores device readings in SQLite.
type Readings struct {
	*sql.DB
}

// OpenReadings opens (creating if needed) the readings database at path.
// ":memory:" gives a private in-memory database.
func OpenReadings(path string) (*Readings, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	if path == ":memory:" {
		// every pooled connection would get its own empty database
		db.SetMaxOpenConns(1)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS readings (
			device_id TEXT NOT NULL,
			timestamp BIGINT NOT NULL,
			accel_x DOUBLE,
			accel_y DOUBLE,
			accel_z DOUBLE,
			gyro_x DOUBLE,
			gyro_y DOUBLE,
			gyro_z DOUBLE,
			temperature DOUBLE,
			humidity DOUBLE,
			salinity DOUBLE,
			PRIMARY KEY (device_id, timestamp)
		);
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create readings table: %w", err)
	}

	return &Readings{db}, nil
}

// Insert stores r, replacing any reading with the same device and timestamp.
func (db *Readings) Insert(ctx context.Context, r imu.Reading) error {
	_, err := db.ExecContext(ctx, `
		INSERT OR REPLACE INTO readings (
			device_id, timestamp,
			accel_x, accel_y, accel_z, gyro_x, gyro_y, gyro_z,
			temperature, humidity, salinity
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.DeviceID, r.Timestamp,
		r.Data.AccelX, r.Data.AccelY, r.Data.AccelZ,
		r.Data.GyroX, r.Data.GyroY, r.Data.GyroZ,
		r.Data.Temperature, r.Data.Humidity, r.Data.Salinity,
	)
	if err != nil {
		return fmt.Errorf("insert reading: %w", err)
	}
	return nil
}

// Latest returns up to limit readings of deviceID, newest first.
func (db *Readings) Latest(ctx context.Context, deviceID string, limit int) ([]imu.Reading, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT device_id, timestamp,
			accel_x, accel_y, accel_z, gyro_x, gyro_y, gyro_z,
			temperature, humidity, salinity
		FROM readings
		WHERE device_id = ?
		ORDER BY timestamp DESC
		LIMIT ?`, deviceID, limit)
	if err != nil {
		return nil, fmt.Errorf("query readings: %w", err)
	}
	defer rows.Close()

	readings := []imu.Reading{}
	for rows.Next() {
		var r imu.Reading
		if err := rows.Scan(
			&r.DeviceID, &r.Timestamp,
			&r.Data.AccelX, &r.Data.AccelY, &r.Data.AccelZ,
			&r.Data.GyroX, &r.Data.GyroY, &r.Data.GyroZ,
			&r.Data.Temperature, &r.Data.Humidity, &r.Data.Salinity,
		); err != nil {
			return nil, err
		}
		readings = append(readings, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return readings, nil
}
