// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package display

import (
	"fmt"
	"image"
	"io"
	"sync"

	ui "github.com/gizak/termui/v3"
	"github.com/gizak/termui/v3/widgets"
	log "github.com/sirupsen/logrus"
)

const tuiPanelWidth = 28

// TUI is a full-screen terminal dashboard: a braille canvas with the cube
// wireframe and a panel with the angles. Pressing q or Ctrl-C calls onQuit.
// Log output is muted while the dashboard owns the terminal.
type TUI struct {
	half   float64
	onQuit func()

	mu     sync.Mutex
	width  int
	height int

	done    chan struct{}
	logOut  io.Writer
	closeMu sync.Once
}

func NewTUI(half float64, onQuit func()) (*TUI, error) {
	if err := ui.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize termui: %w", err)
	}

	w, h := ui.TerminalDimensions()
	t := &TUI{
		half:   half,
		onQuit: onQuit,
		width:  w,
		height: h,
		done:   make(chan struct{}),
		logOut: log.StandardLogger().Out,
	}
	log.SetOutput(io.Discard)

	go t.pollEvents()
	return t, nil
}

func (t *TUI) pollEvents() {
	events := ui.PollEvents()
	for {
		select {
		case <-t.done:
			return
		case e := <-events:
			switch e.ID {
			case "q", "<C-c>":
				if t.onQuit != nil {
					t.onQuit()
				}
				return
			case "<Resize>":
				if r, ok := e.Payload.(ui.Resize); ok {
					t.mu.Lock()
					t.width, t.height = r.Width, r.Height
					t.mu.Unlock()
					ui.Clear()
				}
			}
		}
	}
}

func (t *TUI) Show(f Frame) error {
	t.mu.Lock()
	w, h := t.width, t.height
	t.mu.Unlock()

	canvasRight := w - tuiPanelWidth
	if canvasRight < 10 {
		canvasRight = w
	}

	canvas := ui.NewCanvas()
	canvas.Title = " Orientation "
	canvas.SetRect(0, 0, canvasRight, h)
	for _, seg := range Wireframe(f.Vertices, brailleBounds(canvas.Inner), t.half) {
		canvas.SetLine(seg[0], seg[1], ui.ColorCyan)
	}

	panel := widgets.NewParagraph()
	panel.Title = " Pose "
	panel.Text = fmt.Sprintf(
		"Roll : %8.2f°\nPitch: %8.2f°\nYaw  : %8.2f°\n\n%s\n\nq to quit",
		f.Pose.Roll, f.Pose.Pitch, f.Pose.Yaw,
		f.Time.Format("15:04:05.000"),
	)
	panel.SetRect(canvasRight, 0, w, 10)

	ui.Render(canvas, panel)
	return nil
}

// brailleBounds converts a cell rectangle into canvas dot coordinates
// (each cell holds 2x4 braille dots).
func brailleBounds(cells image.Rectangle) image.Rectangle {
	return image.Rect(cells.Min.X*2, cells.Min.Y*4, cells.Max.X*2, cells.Max.Y*4)
}

func (t *TUI) Close() error {
	t.closeMu.Do(func() {
		close(t.done)
		ui.Close()
		log.SetOutput(t.logOut)
	})
	return nil
}
