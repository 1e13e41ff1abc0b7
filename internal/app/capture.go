// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
	"io"
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/relabs-tech/imu_monitor/internal/config"
)

// fpsEvery is how many forwarded frames pass between FPS reports.
const fpsEvery = 30

// errBadFrame marks a camera response that is not a decodable JPEG.
var errBadFrame = errors.New("invalid or corrupt frame")

// CaptureResult is the sensor API answer to a forwarded frame.
type CaptureResult struct {
	Message string `json:"message"`
	URL     string `json:"url"`
	Size    int    `json:"size"`
}

// CapturePoller pulls single JPEG frames from a camera and forwards them to
// the sensor API capture endpoint.
type CapturePoller struct {
	cameraURL string
	apiURL    string
	client    *http.Client
	overlay   bool
	now       func() time.Time

	frames int
	start  time.Time
	fps    float64
}

// NewCapturePoller builds a poller from the CAMERA_* and CAPTURE_* keys.
func NewCapturePoller(cfg *config.Config) *CapturePoller {
	return &CapturePoller{
		cameraURL: cfg.CameraURL,
		apiURL:    cfg.CaptureAPIURL,
		client:    &http.Client{Timeout: time.Duration(cfg.CaptureTimeout) * time.Millisecond},
		overlay:   cfg.CaptureOverlay,
		now:       time.Now,
	}
}

// Poll fetches one frame and forwards it. A failed fetch or an undecodable
// frame is returned without posting anything.
func (p *CapturePoller) Poll(ctx context.Context) (CaptureResult, error) {
	if p.start.IsZero() {
		p.start = p.now()
	}

	frame, err := p.fetch(ctx)
	if err != nil {
		return CaptureResult{}, err
	}
	img, err := jpeg.Decode(bytes.NewReader(frame))
	if err != nil {
		return CaptureResult{}, fmt.Errorf("%w: %v", errBadFrame, err)
	}

	p.frames++
	if p.frames%fpsEvery == 0 {
		if elapsed := p.now().Sub(p.start).Seconds(); elapsed > 0 {
			p.fps = float64(p.frames) / elapsed
		}
		log.WithFields(log.Fields{"frames": p.frames, "fps": fmt.Sprintf("%.1f", p.fps)}).Info("capture: forwarding")
	}

	if p.overlay && p.fps > 0 {
		if frame, err = stampFPS(img, p.fps); err != nil {
			return CaptureResult{}, err
		}
	}
	return p.post(ctx, frame)
}

func (p *CapturePoller) fetch(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.cameraURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("GET %s: %w", p.cameraURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("GET %s: status %d", p.cameraURL, resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

func (p *CapturePoller) post(ctx context.Context, frame []byte) (CaptureResult, error) {
	body, err := json.Marshal(captureRequest{Image: base64.StdEncoding.EncodeToString(frame)})
	if err != nil {
		return CaptureResult{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.apiURL, bytes.NewReader(body))
	if err != nil {
		return CaptureResult{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return CaptureResult{}, fmt.Errorf("POST %s: %w", p.apiURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var apiErr struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&apiErr)
		return CaptureResult{}, fmt.Errorf("POST %s: status %d: %s", p.apiURL, resp.StatusCode, apiErr.Error)
	}

	var res CaptureResult
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		return CaptureResult{}, fmt.Errorf("POST %s: decode: %w", p.apiURL, err)
	}
	return res, nil
}

// stampFPS draws the rate in the top right corner and re-encodes the frame.
func stampFPS(src image.Image, fps float64) ([]byte, error) {
	b := src.Bounds()
	dst := image.NewRGBA(b)
	draw.Draw(dst, b, src, b.Min, draw.Src)

	label := fmt.Sprintf("FPS: %.1f", fps)
	drawer := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(color.RGBA{R: 255, G: 200, A: 255}),
		Face: basicfont.Face7x13,
	}
	width := drawer.MeasureString(label).Ceil()
	drawer.Dot = fixed.P(b.Max.X-width-6, b.Min.Y+16)
	drawer.DrawString(label)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: 90}); err != nil {
		return nil, fmt.Errorf("encode frame: %w", err)
	}
	return buf.Bytes(), nil
}

// Run polls every interval until ctx is done. Failures are logged and the
// next tick tries again.
func (p *CapturePoller) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}

		res, err := p.Poll(ctx)
		switch {
		case ctx.Err() != nil:
			return nil
		case errors.Is(err, errBadFrame):
			log.Warnf("capture: %v", err)
		case err != nil:
			log.Errorf("capture: %v", err)
		default:
			log.WithFields(log.Fields{"size": res.Size, "url": res.URL}).Debug("capture: stored")
		}
	}
}

// RunCapturePoller forwards camera frames to the sensor API until ctx is done.
func RunCapturePoller(ctx context.Context, cfg *config.Config) error {
	p := NewCapturePoller(cfg)
	log.WithFields(log.Fields{
		"camera":   cfg.CameraURL,
		"api":      cfg.CaptureAPIURL,
		"interval": cfg.CaptureInterval(),
	}).Info("capture poller started")
	defer p.client.CloseIdleConnections()
	return p.Run(ctx, cfg.CaptureInterval())
}
