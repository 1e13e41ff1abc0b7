// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/imu_monitor/internal/config"
	"github.com/relabs-tech/imu_monitor/internal/imu"
	"github.com/relabs-tech/imu_monitor/internal/store"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type apiFixture struct {
	router   *gin.Engine
	readings *store.Readings
	blobs    *store.Blobs
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()

	cfg := config.Default()
	cfg.APISigningKey = "test-signing-key-0123"
	cfg.APIPublicURL = "http://api.test"

	readings, err := store.OpenReadings(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { readings.Close() })

	blobs, err := store.OpenBlobs(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { blobs.Close() })

	return &apiFixture{
		router:   NewSensorAPI(cfg, readings, blobs),
		readings: readings,
		blobs:    blobs,
	}
}

func (f *apiFixture) do(method, target, body string) *httptest.ResponseRecorder {
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func assertCORS(t *testing.T, w *httptest.ResponseRecorder) {
	t.Helper()
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "GET, OPTIONS, POST", w.Header().Get("Access-Control-Allow-Methods"))
}

func TestSensorAPI_Data(t *testing.T) {
	f := newAPIFixture(t)
	ctx := context.Background()

	for ts := int64(1); ts <= 12; ts++ {
		require.NoError(t, f.readings.Insert(ctx, imu.Reading{
			DeviceID:  "DRON_ESP32",
			Timestamp: ts * 1000,
			Data:      imu.ReadingData{AccelZ: 16384, Temperature: 20 + float64(ts)},
		}))
	}

	w := f.do(http.MethodGet, "/data", "")
	require.Equal(t, http.StatusOK, w.Code)
	assertCORS(t, w)

	var items []imu.Reading
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &items))
	require.Len(t, items, 10)
	assert.Equal(t, int64(12000), items[0].Timestamp)
	assert.Equal(t, int64(3000), items[9].Timestamp)

	// wire names the web frontend reads
	assert.Contains(t, w.Body.String(), `"DeviceId":"DRON_ESP32"`)
	assert.Contains(t, w.Body.String(), `"Temperatura":32`)
}

func TestSensorAPI_DataEmpty(t *testing.T) {
	f := newAPIFixture(t)
	w := f.do(http.MethodGet, "/data", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())
}

func TestSensorAPI_DataStoreFailure(t *testing.T) {
	f := newAPIFixture(t)
	require.NoError(t, f.readings.Close())

	w := f.do(http.MethodGet, "/data", "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), `"error"`)
}

func TestSensorAPI_CaptureRoundTrip(t *testing.T) {
	f := newAPIFixture(t)
	jpeg := []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10, 'J', 'F', 'I', 'F'}
	body := `{"image": "` + base64.StdEncoding.EncodeToString(jpeg) + `"}`

	w := f.do(http.MethodPost, "/capture", body)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assertCORS(t, w)

	var resp struct {
		Message string `json:"message"`
		URL     string `json:"url"`
		Size    int    `json:"size"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, len(jpeg), resp.Size)
	assert.Contains(t, resp.Message, "captures/")

	u, err := url.Parse(resp.URL)
	require.NoError(t, err)
	assert.Equal(t, "api.test", u.Host)
	assert.Regexp(t, regexp.MustCompile(`^/objects/captures/capture_\d+_[0-9a-f]{8}\.jpg$`), u.Path)

	// follow the signed link
	w = f.do(http.MethodGet, u.RequestURI(), "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, jpeg, w.Body.Bytes())
	assert.Equal(t, "image/jpeg", w.Header().Get("Content-Type"))
	assert.Equal(t, "no-cache, no-store, must-revalidate", w.Header().Get("Cache-Control"))
	assertCORS(t, w)

	// tampered signature
	q := u.Query()
	q.Set("signature", strings.Repeat("0", 64))
	w = f.do(http.MethodGet, u.Path+"?"+q.Encode(), "")
	assert.Equal(t, http.StatusForbidden, w.Code)

	// valid signature for an object that is not there
	api := &sensorAPI{signer: store.NewSigner([]byte("test-signing-key-0123"))}
	missing := api.signer.URL("", "captures/missing.jpg", time.Hour)
	w = f.do(http.MethodGet, missing, "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = f.do(http.MethodGet, "/objects/captures/x.jpg", "")
	assert.Equal(t, http.StatusForbidden, w.Code, "unsigned")
}

func TestSensorAPI_CaptureErrors(t *testing.T) {
	f := newAPIFixture(t)

	cases := map[string]string{
		"not json":    `image=abc`,
		"no image":    `{"other": 1}`,
		"bad base64":  `{"image": "***"}`,
		"empty image": `{"image": ""}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			w := f.do(http.MethodPost, "/capture", body)
			assert.Equal(t, http.StatusInternalServerError, w.Code)
			assert.Contains(t, w.Body.String(), `"error"`)
			assertCORS(t, w)
		})
	}
}

func TestSensorAPI_Routes(t *testing.T) {
	f := newAPIFixture(t)

	w := f.do(http.MethodGet, "/capture", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "use POST")

	for _, m := range []string{http.MethodPut, http.MethodDelete, http.MethodPatch} {
		w = f.do(m, "/capture", "")
		assert.Equal(t, http.StatusMethodNotAllowed, w.Code, m)
		assertCORS(t, w)
	}

	w = f.do(http.MethodGet, "/nope", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"error": "endpoint not found"}`, w.Body.String())
	assertCORS(t, w)

	for _, target := range []string{"/capture", "/data", "/anything"} {
		w = f.do(http.MethodOptions, target, "")
		assert.Equal(t, http.StatusNoContent, w.Code, target)
		assertCORS(t, w)
	}
}

func TestStoreReading(t *testing.T) {
	readings, err := store.OpenReadings(":memory:")
	require.NoError(t, err)
	defer readings.Close()
	ctx := context.Background()

	payload := `{"DeviceId":"DRON_ESP32","Timestamp":1700000000000,"Data":{"AccelX":1,"AccelY":2,"AccelZ":16384,"GyroX":0,"GyroY":0,"GyroZ":0,"Temperatura":22.5,"Humedad":60,"salinidad":35}}`
	require.NoError(t, storeReading(ctx, readings, []byte(payload)))

	got, err := readings.Latest(ctx, "DRON_ESP32", 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 22.5, got[0].Data.Temperature)
	assert.Equal(t, 35.0, got[0].Data.Salinity)

	assert.Error(t, storeReading(ctx, readings, []byte(`{`)))
	assert.Error(t, storeReading(ctx, readings, []byte(`{"Timestamp": 1}`)))
}
