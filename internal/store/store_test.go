// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package store

import (
	"context"
	"io"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/imu_monitor/internal/imu"
)

func reading(device string, ts int64) imu.Reading {
	return imu.Reading{
		DeviceID:  device,
		Timestamp: ts,
		Data: imu.ReadingData{
			AccelX: float64(ts), AccelY: -1, AccelZ: 16384,
			GyroX: 1, GyroY: 2, GyroZ: 3,
			Temperature: 24.5, Humidity: 61, Salinity: 35.2,
		},
	}
}

func TestReadings_LatestNewestFirst(t *testing.T) {
	db, err := OpenReadings(":memory:")
	require.NoError(t, err)
	defer db.Close()
	ctx := context.Background()

	for _, ts := range []int64{3000, 1000, 5000, 2000, 4000} {
		require.NoError(t, db.Insert(ctx, reading("DRON_ESP32", ts)))
	}
	require.NoError(t, db.Insert(ctx, reading("OTHER", 9000)))

	got, err := db.Latest(ctx, "DRON_ESP32", 3)
	require.NoError(t, err)
	want := []imu.Reading{
		reading("DRON_ESP32", 5000),
		reading("DRON_ESP32", 4000),
		reading("DRON_ESP32", 3000),
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Latest mismatch (-want +got):\n%s", diff)
	}
}

func TestReadings_EmptyAndReplace(t *testing.T) {
	db, err := OpenReadings(filepath.Join(t.TempDir(), "readings.db"))
	require.NoError(t, err)
	defer db.Close()
	ctx := context.Background()

	got, err := db.Latest(ctx, "DRON_ESP32", 10)
	require.NoError(t, err)
	assert.NotNil(t, got, "empty result encodes as [] not null")
	assert.Empty(t, got)

	r := reading("DRON_ESP32", 1000)
	require.NoError(t, db.Insert(ctx, r))
	r.Data.Temperature = 30
	require.NoError(t, db.Insert(ctx, r))

	got, err = db.Latest(ctx, "DRON_ESP32", 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 30.0, got[0].Data.Temperature)
}

func TestBlobs_PutOpen(t *testing.T) {
	b, err := OpenBlobs(filepath.Join(t.TempDir(), "bucket"))
	require.NoError(t, err)
	defer b.Close()

	data := []byte{0xFF, 0xD8, 0xFF, 0xE0, 'j', 'p', 'g'}
	require.NoError(t, b.Put("captures/capture_1.jpg", data))

	f, info, err := b.Open("/captures/capture_1.jpg")
	require.NoError(t, err)
	defer f.Close()
	assert.Equal(t, int64(len(data)), info.Size())

	got, err := io.ReadAll(f)
	require.NoError(t, err)
	assert.Equal(t, data, got)

	_, _, err = b.Open("captures/missing.jpg")
	assert.ErrorIs(t, err, ErrNotFound)
	_, _, err = b.Open("captures")
	assert.ErrorIs(t, err, ErrNotFound, "directories are not objects")
}

func TestCleanKey(t *testing.T) {
	ok := map[string]string{
		"a.jpg":                 "a.jpg",
		"/captures/x.jpg":       "captures/x.jpg",
		"captures/2026/x_1.jpg": "captures/2026/x_1.jpg",
	}
	for in, want := range ok {
		got, err := CleanKey(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
	}

	for _, bad := range []string{"", "/", "../etc/passwd", "captures/../../x", "captures//x", "a\\b", "captures/./x", "captures/"} {
		_, err := CleanKey(bad)
		assert.ErrorIs(t, err, ErrInvalidKey, bad)
	}
}

func TestSigner(t *testing.T) {
	s := NewSigner([]byte("0123456789abcdef"))
	clock := time.Unix(1_700_000_000, 0)
	s.now = func() time.Time { return clock }

	expires, sig := s.Sign("captures/a.jpg", time.Hour)
	assert.Equal(t, clock.Add(time.Hour).Unix(), expires)
	require.NoError(t, s.Verify("captures/a.jpg", expires, sig))

	assert.ErrorIs(t, s.Verify("captures/b.jpg", expires, sig), ErrBadSignature)
	assert.ErrorIs(t, s.Verify("captures/a.jpg", expires+1, sig), ErrBadSignature)
	assert.ErrorIs(t, s.Verify("captures/a.jpg", expires, "zz"), ErrBadSignature)
	assert.ErrorIs(t, s.Verify("captures/a.jpg", expires, strings.Repeat("0", len(sig))), ErrBadSignature)

	other := NewSigner([]byte("another-key-0000"))
	other.now = s.now
	assert.ErrorIs(t, other.Verify("captures/a.jpg", expires, sig), ErrBadSignature)

	clock = clock.Add(time.Hour + time.Second)
	assert.ErrorIs(t, s.Verify("captures/a.jpg", expires, sig), ErrExpired)
}

func TestSigner_URL(t *testing.T) {
	s := NewSigner([]byte("0123456789abcdef"))
	raw := s.URL("http://localhost:8090", "captures/capture 1.jpg", time.Hour)

	u, err := url.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "localhost:8090", u.Host)
	assert.Equal(t, "/objects/captures/capture 1.jpg", u.Path)

	expires, err := strconv.ParseInt(u.Query().Get("expires"), 10, 64)
	require.NoError(t, err)
	assert.NoError(t, s.Verify("captures/capture 1.jpg", expires, u.Query().Get("signature")))
}
