// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/golang/geo/r3"
	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"

	"github.com/relabs-tech/imu_monitor/internal/config"
	"github.com/relabs-tech/imu_monitor/internal/geometry"
	"github.com/relabs-tech/imu_monitor/internal/orientation"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // viewer is served from the same host or opened as a local file
	},
}

// cubeFrame is the JSON form of a rotated cube.
type cubeFrame struct {
	Time     time.Time        `json:"time"`
	Pose     orientation.Pose `json:"pose"`
	Vertices [][3]float64     `json:"vertices"`
	Edges    [12][2]int       `json:"edges"`
	Faces    [6][4]int        `json:"faces"`
}

// poseHub keeps the latest pose and fans updates out to websocket clients.
type poseHub struct {
	cube []r3.Vector

	mu    sync.RWMutex
	frame cubeFrame
	have  bool
	subs  map[chan cubeFrame]struct{}
}

func newPoseHub(half float64) *poseHub {
	return &poseHub{
		cube: geometry.CubeVertices(half),
		subs: make(map[chan cubeFrame]struct{}),
	}
}

func (h *poseHub) update(p orientation.Pose) {
	rotated := geometry.Rotate(p.Roll, p.Pitch, p.Yaw, h.cube)
	f := cubeFrame{
		Time:     time.Now(),
		Pose:     p,
		Vertices: make([][3]float64, len(rotated)),
		Edges:    geometry.CubeEdges,
		Faces:    geometry.CubeFaces,
	}
	for i, v := range rotated {
		f.Vertices[i] = [3]float64{v.X, v.Y, v.Z}
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.frame = f
	h.have = true
	for ch := range h.subs {
		select {
		case ch <- f:
		default: // slow client, it gets the next one
		}
	}
}

func (h *poseHub) latest() (cubeFrame, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.frame, h.have
}

func (h *poseHub) subscribe() chan cubeFrame {
	ch := make(chan cubeFrame, 1)
	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()
	return ch
}

func (h *poseHub) unsubscribe(ch chan cubeFrame) {
	h.mu.Lock()
	delete(h.subs, ch)
	h.mu.Unlock()
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("json encode error: %v", err)
	}
}

// webHandler serves the viewer API and static files from staticDir.
func webHandler(h *poseHub, staticDir string) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/api/orientation", func(w http.ResponseWriter, r *http.Request) {
		f, ok := h.latest()
		if !ok {
			http.Error(w, "no data yet", http.StatusServiceUnavailable)
			return
		}
		writeJSON(w, f.Pose)
	})

	mux.HandleFunc("/api/cube", func(w http.ResponseWriter, r *http.Request) {
		f, ok := h.latest()
		if !ok {
			http.Error(w, "no data yet", http.StatusServiceUnavailable)
			return
		}
		writeJSON(w, f)
	})

	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		serveCubeWS(h, w, r)
	})

	mux.Handle("/", http.FileServer(http.Dir(staticDir)))
	return mux
}

// serveCubeWS streams cube frames to one client until it disconnects.
func serveCubeWS(h *poseHub, w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("web: websocket upgrade error: %v", err)
		return
	}
	defer conn.Close()

	ch := h.subscribe()
	defer h.unsubscribe(ch)

	// reader detects the client going away
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	if f, ok := h.latest(); ok {
		if err := conn.WriteJSON(f); err != nil {
			return
		}
	}

	for {
		select {
		case <-gone:
			return
		case f := <-ch:
			conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
			if err := conn.WriteJSON(f); err != nil {
				log.Debugf("web: websocket write error: %v", err)
				return
			}
		}
	}
}

// RunWeb serves the orientation viewer, fed by the poses the monitor
// publishes over MQTT, until ctx is done.
func RunWeb(ctx context.Context, cfg *config.Config) error {
	hub := newPoseHub(cfg.CubeHalfSize)

	client, err := connectMQTT(cfg, cfg.MQTTClientIDWeb)
	if err != nil {
		return err
	}
	defer client.Disconnect(250)

	if err := subscribePoses(client, cfg.TopicPose, hub.update); err != nil {
		return err
	}

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.WebServerPort),
		Handler: webHandler(hub, cfg.WebStaticDir),
	}
	return serveUntilDone(ctx, srv, "web")
}

// serveUntilDone runs srv and shuts it down gracefully when ctx is done.
func serveUntilDone(ctx context.Context, srv *http.Server, name string) error {
	errCh := make(chan error, 1)
	go func() {
		log.Printf("%s server listening on %s", name, srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	log.Printf("%s server stopped", name)
	return nil
}
