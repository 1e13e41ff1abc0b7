// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/imu_monitor/internal/config"
	"github.com/relabs-tech/imu_monitor/internal/imu"
)

type fakeAPI struct {
	mu     sync.Mutex
	status int
	items  []imu.Reading
}

func (f *fakeAPI) set(status int, items ...imu.Reading) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.status = status
	f.items = items
}

func (f *fakeAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.status != http.StatusOK {
		w.WriteHeader(f.status)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(f.items)
}

func reading(ts int64, ax float64) imu.Reading {
	return imu.Reading{
		DeviceID:  "DRON_ESP32",
		Timestamp: ts,
		Data:      imu.ReadingData{AccelX: ax, AccelZ: 16384, GyroZ: 131},
	}
}

func TestHTTPSource_NewestAndStale(t *testing.T) {
	api := &fakeAPI{}
	srv := httptest.NewServer(api)
	defer srv.Close()

	src := NewHTTPSource(srv.URL+"/data", time.Second)
	defer src.Close()
	ctx := context.Background()

	api.set(http.StatusOK, reading(2000, 2), reading(1000, 1))
	raw, err := src.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, imu.Raw{Ax: 2, Az: 16384, Gz: 131}, raw)

	// same newest timestamp again
	_, err = src.Next(ctx)
	assert.ErrorIs(t, err, imu.ErrStale)

	api.set(http.StatusOK, reading(3000, 3), reading(2000, 2))
	raw, err = src.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3.0, raw.Ax)
}

func TestHTTPSource_Empty(t *testing.T) {
	api := &fakeAPI{}
	api.set(http.StatusOK)
	srv := httptest.NewServer(api)
	defer srv.Close()

	_, err := NewHTTPSource(srv.URL, time.Second).Next(context.Background())
	assert.ErrorIs(t, err, imu.ErrStale)
}

func TestHTTPSource_Unavailable(t *testing.T) {
	api := &fakeAPI{}
	api.set(http.StatusInternalServerError)
	srv := httptest.NewServer(api)

	src := NewHTTPSource(srv.URL, time.Second)
	_, err := src.Next(context.Background())
	assert.ErrorIs(t, err, imu.ErrSourceUnavailable)

	srv.Close()
	_, err = src.Next(context.Background())
	assert.ErrorIs(t, err, imu.ErrSourceUnavailable)
}

func TestHTTPSource_BadPayload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"error": "not a list"}`))
	}))
	defer srv.Close()

	_, err := NewHTTPSource(srv.URL, time.Second).Next(context.Background())
	assert.ErrorIs(t, err, imu.ErrSourceUnavailable)
}

func TestNewSource(t *testing.T) {
	cfg := config.Default()
	cfg.AccelScale = 16384
	cfg.GyroScale = 131

	cfg.Source = config.SourceMock
	src, err := NewSource(cfg)
	require.NoError(t, err)
	raw, err := src.Next(context.Background())
	require.NoError(t, err)
	assert.NotZero(t, raw.Az)

	cfg.Source = config.SourceSerial
	cfg.SerialPort = "/dev/ttyUSB0"
	src, err = NewSource(cfg)
	require.NoError(t, err)
	assert.IsType(t, &SerialSource{}, src)

	cfg.Source = config.SourceHTTP
	cfg.HTTPSourceURL = "http://localhost:8090/data"
	src, err = NewSource(cfg)
	require.NoError(t, err)
	assert.IsType(t, &HTTPSource{}, src)

	cfg.Source = "carrier-pigeon"
	_, err = NewSource(cfg)
	assert.Error(t, err)
}
