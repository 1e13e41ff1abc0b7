// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package display

import (
	"fmt"
	"io"
)

// Console prints one line per frame.
type Console struct {
	w io.Writer
}

func NewConsole(w io.Writer) *Console {
	return &Console{w: w}
}

func (c *Console) Show(f Frame) error {
	_, err := fmt.Fprintf(c.w,
		"ROLL=%7.2f  PITCH=%7.2f  YAW=%7.2f\n",
		f.Pose.Roll,
		f.Pose.Pitch,
		f.Pose.Yaw,
	)
	return err
}

func (c *Console) Close() error { return nil }
