// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package display

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"

	log "github.com/sirupsen/logrus"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/devices/v3/ssd1306"
	"periph.io/x/devices/v3/ssd1306/image1bit"
	"periph.io/x/host/v3"

	"github.com/relabs-tech/imu_monitor/internal/config"
)

const (
	oledWidth  = 128
	oledHeight = 64
)

// OLED draws the angles and a cube wireframe on a 128x64 SSD1306.
type OLED struct {
	dev  *ssd1306.Dev
	bus  i2c.BusCloser
	half float64
}

// NewOLED opens the I2C bus (empty name selects the first one) and the
// display at config.OLEDAddr, then shows a splash screen.
func NewOLED(busName string, half float64) (*OLED, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize periph: %w", err)
	}

	bus, err := i2creg.Open(busName)
	if err != nil {
		return nil, fmt.Errorf("failed to open I2C bus: %w", err)
	}

	opts := ssd1306.DefaultOpts
	dev, err := ssd1306.NewI2C(bus, &opts)
	if err != nil {
		bus.Close()
		return nil, fmt.Errorf("failed to initialize display at 0x%02X: %w", config.OLEDAddr, err)
	}
	log.Printf("display: OLED initialized at 0x%02X", config.OLEDAddr)

	o := &OLED{dev: dev, bus: bus, half: half}
	if err := o.dev.Draw(o.dev.Bounds(), splashImage(), image.Point{}); err != nil {
		log.Warnf("display: error showing splash: %v", err)
	}
	return o, nil
}

func (o *OLED) Show(f Frame) error {
	return o.dev.Draw(o.dev.Bounds(), renderOLED(f, o.half), image.Point{})
}

func (o *OLED) Close() error {
	err := o.dev.Halt()
	if cerr := o.bus.Close(); err == nil {
		err = cerr
	}
	return err
}

func newOLEDImage() (*image1bit.VerticalLSB, *font.Drawer) {
	img := image1bit.NewVerticalLSB(image.Rect(0, 0, oledWidth, oledHeight))
	drawer := &font.Drawer{
		Dst:  img,
		Src:  &image.Uniform{image1bit.On},
		Face: basicfont.Face7x13,
	}
	return img, drawer
}

func splashImage() *image1bit.VerticalLSB {
	img, drawer := newOLEDImage()

	drawer.Dot = fixed.P(20, 26)
	drawer.DrawString("IMU Monitor")

	drawer.Dot = fixed.P(30, 43)
	drawer.DrawString("Waiting...")

	return img
}

// renderOLED lays out angles on the left half and the cube on the right.
func renderOLED(f Frame, half float64) *image1bit.VerticalLSB {
	img, drawer := newOLEDImage()

	drawer.Dot = fixed.P(0, 13)
	drawer.DrawString(fmt.Sprintf("R:%6.1f", f.Pose.Roll))

	drawer.Dot = fixed.P(0, 26)
	drawer.DrawString(fmt.Sprintf("P:%6.1f", f.Pose.Pitch))

	drawer.Dot = fixed.P(0, 39)
	drawer.DrawString(fmt.Sprintf("Y:%6.1f", f.Pose.Yaw))

	cube := image.Rect(oledWidth/2, 0, oledWidth, oledHeight)
	for _, seg := range Wireframe(f.Vertices, cube, half) {
		drawLine(img, seg[0], seg[1], image1bit.On)
	}
	return img
}

// drawLine rasterizes a one pixel line (Bresenham). Points outside the
// image are ignored by Set.
func drawLine(img draw.Image, p0, p1 image.Point, c color.Color) {
	dx := abs(p1.X - p0.X)
	dy := -abs(p1.Y - p0.Y)
	sx, sy := 1, 1
	if p0.X > p1.X {
		sx = -1
	}
	if p0.Y > p1.Y {
		sy = -1
	}

	e := dx + dy
	for {
		img.Set(p0.X, p0.Y, c)
		if p0 == p1 {
			return
		}
		e2 := 2 * e
		if e2 >= dy {
			e += dy
			p0.X += sx
		}
		if e2 <= dx {
			e += dx
			p0.Y += sy
		}
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
