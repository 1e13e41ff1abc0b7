// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package logging configures the process-wide logrus logger.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"

	log "github.com/sirupsen/logrus"
)

// Init sets the level ("debug", "info", "warn", "error") and the format
// ("text" or "json") of the standard logrus logger.
func Init(level, format string) error {
	return Configure(log.StandardLogger(), os.Stderr, level, format)
}

// Configure applies level and format to l, writing to w.
func Configure(l *log.Logger, w io.Writer, level, format string) error {
	if level == "" {
		level = "info"
	}
	lvl, err := log.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", level, err)
	}

	switch strings.ToLower(format) {
	case "", "text":
		l.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	case "json":
		l.SetFormatter(&log.JSONFormatter{})
	default:
		return fmt.Errorf("invalid log format %q: expected text or json", format)
	}

	l.SetOutput(w)
	l.SetLevel(lvl)
	return nil
}
