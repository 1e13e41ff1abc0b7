// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package display

import (
	"bytes"
	"encoding/json"
	"errors"
	"image"
	"image/color"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"periph.io/x/devices/v3/ssd1306/image1bit"

	"github.com/relabs-tech/imu_monitor/internal/config"
	"github.com/relabs-tech/imu_monitor/internal/geometry"
	"github.com/relabs-tech/imu_monitor/internal/orientation"
)

func testFrame() Frame {
	pose := orientation.Pose{Roll: 12.5, Pitch: -3.25, Yaw: 90}
	return Frame{
		Time:     time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		Pose:     pose,
		Vertices: geometry.Rotate(pose.Roll, pose.Pitch, pose.Yaw, geometry.CubeVertices(0.5)),
	}
}

func TestConsole_Show(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsole(&buf)

	require.NoError(t, c.Show(testFrame()))
	assert.Equal(t, "ROLL=  12.50  PITCH=  -3.25  YAW=  90.00\n", buf.String())
	assert.NoError(t, c.Close())
}

type recordingSink struct {
	name   string
	shown  []Frame
	err    error
	closed *[]string
}

func (r *recordingSink) Show(f Frame) error {
	r.shown = append(r.shown, f)
	return r.err
}

func (r *recordingSink) Close() error {
	*r.closed = append(*r.closed, r.name)
	return nil
}

func TestMulti(t *testing.T) {
	var closed []string
	a := &recordingSink{name: "a", closed: &closed}
	b := &recordingSink{name: "b", err: errors.New("b failed"), closed: &closed}
	c := &recordingSink{name: "c", closed: &closed}
	m := Multi{a, b, c}

	f := testFrame()
	err := m.Show(f)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "b failed")

	// a failing sink does not starve the others
	assert.Len(t, a.shown, 1)
	assert.Len(t, c.shown, 1)
	assert.Equal(t, f.Pose, c.shown[0].Pose)

	require.NoError(t, m.Close())
	assert.Equal(t, []string{"c", "b", "a"}, closed)
}

type fakeToken struct {
	err error
}

func (t *fakeToken) Wait() bool                     { return true }
func (t *fakeToken) WaitTimeout(time.Duration) bool { return true }
func (t *fakeToken) Error() error                   { return t.err }

func (t *fakeToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}

type publishCall struct {
	topic    string
	qos      byte
	retained bool
	payload  []byte
}

type fakePublisher struct {
	calls []publishCall
	err   error
}

func (p *fakePublisher) Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token {
	p.calls = append(p.calls, publishCall{topic, qos, retained, payload.([]byte)})
	return &fakeToken{err: p.err}
}

func TestMQTT_Show(t *testing.T) {
	pub := &fakePublisher{}
	s := newMQTT(pub, "imu/pose")

	require.NoError(t, s.Show(testFrame()))
	require.Len(t, pub.calls, 1)

	call := pub.calls[0]
	assert.Equal(t, "imu/pose", call.topic)
	assert.Equal(t, byte(0), call.qos)
	assert.True(t, call.retained)

	var got orientation.Pose
	require.NoError(t, json.Unmarshal(call.payload, &got))
	assert.Equal(t, testFrame().Pose, got)

	pub.err = errors.New("not connected")
	assert.ErrorContains(t, s.Show(testFrame()), "not connected")
	assert.NoError(t, s.Close())
}

func TestWireframe(t *testing.T) {
	bounds := image.Rect(0, 0, 60, 60)
	segs := Wireframe(geometry.CubeVertices(0.5), bounds, 0.5)
	require.Len(t, segs, 12)

	// unrotated cube seen from +z: a square centred in bounds, 20 px per half side
	for _, s := range segs {
		for _, p := range s {
			assert.Contains(t, []int{10, 50}, p.X)
			assert.Contains(t, []int{10, 50}, p.Y)
		}
	}

	assert.Nil(t, Wireframe(nil, bounds, 0.5))
}

func TestDrawLine(t *testing.T) {
	count := func(img *image.Gray) int {
		n := 0
		for _, v := range img.Pix {
			if v != 0 {
				n++
			}
		}
		return n
	}

	tests := []struct {
		name   string
		p0, p1 image.Point
		pixels int
	}{
		{"horizontal", image.Pt(1, 5), image.Pt(8, 5), 8},
		{"vertical reversed", image.Pt(3, 9), image.Pt(3, 0), 10},
		{"diagonal", image.Pt(0, 0), image.Pt(6, 6), 7},
		{"single point", image.Pt(4, 4), image.Pt(4, 4), 1},
		{"steep", image.Pt(2, 0), image.Pt(4, 9), 10},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			img := image.NewGray(image.Rect(0, 0, 10, 10))
			drawLine(img, tt.p0, tt.p1, color.White)
			assert.Equal(t, tt.pixels, count(img))
			assert.Equal(t, uint8(255), img.GrayAt(tt.p0.X, tt.p0.Y).Y)
			assert.Equal(t, uint8(255), img.GrayAt(tt.p1.X, tt.p1.Y).Y)
		})
	}

	// clipped lines do not panic
	img := image.NewGray(image.Rect(0, 0, 4, 4))
	drawLine(img, image.Pt(-5, -5), image.Pt(10, 10), color.White)
	assert.Equal(t, 4, count(img))
}

func TestRenderOLED(t *testing.T) {
	img := renderOLED(testFrame(), 0.5)
	assert.Equal(t, image.Rect(0, 0, oledWidth, oledHeight), img.Bounds())

	lit := func(x0, x1 int) int {
		n := 0
		for x := x0; x < x1; x++ {
			for y := 0; y < oledHeight; y++ {
				if img.BitAt(x, y) == image1bit.On {
					n++
				}
			}
		}
		return n
	}
	assert.Positive(t, lit(0, oledWidth/2), "angle text")
	assert.Positive(t, lit(oledWidth/2, oledWidth), "cube wireframe")
}

func TestOpen_UnknownDisplay(t *testing.T) {
	cfg := config.Default()
	cfg.Displays = []string{"console", "hologram"}
	_, err := Open(cfg, nil)
	assert.Error(t, err)

	cfg.Displays = []string{"console"}
	sinks, err := Open(cfg, nil)
	require.NoError(t, err)
	require.Len(t, sinks, 1)
	assert.IsType(t, &Console{}, sinks[0])
}
