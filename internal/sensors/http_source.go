// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/relabs-tech/imu_monitor/internal/imu"
)

// HTTPSource polls the sensor API "/data" endpoint and yields the newest
// reading. A reading whose timestamp was already returned is reported as
// imu.ErrStale.
type HTTPSource struct {
	url    string
	client *http.Client

	lastTimestamp int64
	seen          bool
}

// NewHTTPSource creates a source polling url with a per-request timeout.
func NewHTTPSource(url string, timeout time.Duration) *HTTPSource {
	return &HTTPSource{
		url:    url,
		client: &http.Client{Timeout: timeout},
	}
}

// Next fetches the reading list and returns its first (newest) item.
func (s *HTTPSource) Next(ctx context.Context) (imu.Raw, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return imu.Raw{}, fmt.Errorf("build request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return imu.Raw{}, ctx.Err()
		}
		return imu.Raw{}, fmt.Errorf("GET %s: %v: %w", s.url, err, imu.ErrSourceUnavailable)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return imu.Raw{}, fmt.Errorf("GET %s: status %d: %w", s.url, resp.StatusCode, imu.ErrSourceUnavailable)
	}

	var items []imu.Reading
	if err := json.NewDecoder(resp.Body).Decode(&items); err != nil {
		return imu.Raw{}, fmt.Errorf("GET %s: decode: %v: %w", s.url, err, imu.ErrSourceUnavailable)
	}
	if len(items) == 0 {
		return imu.Raw{}, imu.ErrStale
	}

	newest := items[0]
	if s.seen && newest.Timestamp == s.lastTimestamp {
		return imu.Raw{}, imu.ErrStale
	}
	s.lastTimestamp = newest.Timestamp
	s.seen = true

	return newest.Raw(), nil
}

// Close releases idle connections.
func (s *HTTPSource) Close() error {
	s.client.CloseIdleConnections()
	return nil
}
