// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	jserial "github.com/jacobsa/go-serial/serial"
	log "github.com/sirupsen/logrus"
	"go.bug.st/serial"
	"go.bug.st/serial/enumerator"

	"github.com/relabs-tech/imu_monitor/internal/imu"
)

// PortOpener opens a serial port at 8N1 with the given baud rate.
type PortOpener func(name string, baud int) (io.ReadWriteCloser, error)

// inputResetter is implemented by drivers that can discard pending input.
type inputResetter interface {
	ResetInputBuffer() error
}

// OpenerFor returns the opener for a SERIAL_DRIVER value.
func OpenerFor(driver string) (PortOpener, error) {
	switch driver {
	case "", "bugst":
		return openBugst, nil
	case "jacobsa":
		return openJacobsa, nil
	default:
		return nil, fmt.Errorf("unknown serial driver %q", driver)
	}
}

func openBugst(name string, baud int) (io.ReadWriteCloser, error) {
	mode := &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	return serial.Open(name, mode)
}

func openJacobsa(name string, baud int) (io.ReadWriteCloser, error) {
	return jserial.Open(jserial.OpenOptions{
		PortName:        name,
		BaudRate:        uint(baud),
		DataBits:        8,
		StopBits:        1,
		ParityMode:      jserial.PARITY_NONE,
		MinimumReadSize: 1,
	})
}

// SerialOptions configures a SerialSource.
type SerialOptions struct {
	Port          string
	BaudRate      int
	Backlog       int           // queued lines tolerated before stale ones are dropped
	RetryInterval time.Duration // minimum gap between open attempts
	Open          PortOpener
}

// serialConn is one open port plus the goroutine scanning it.
type serialConn struct {
	port  io.ReadWriteCloser
	lines chan string
	done  chan struct{}
	err   error // valid once lines is closed
}

// SerialSource reads the "ax,ay,az,gx,gy,gz" line protocol from a serial
// port. Next never blocks: it returns imu.ErrStale when no complete line is
// queued. A lost port is reopened on later calls, rate limited by
// RetryInterval.
type SerialSource struct {
	opts SerialOptions
	now  func() time.Time

	mu          sync.Mutex
	conn        *serialConn
	lastAttempt time.Time
}

// NewSerialSource creates a serial source. The port is opened on the first
// call to Next.
func NewSerialSource(opts SerialOptions) *SerialSource {
	if opts.Backlog <= 0 {
		opts.Backlog = 8
	}
	if opts.Open == nil {
		opts.Open = openBugst
	}
	return &SerialSource{opts: opts, now: time.Now}
}

// Next returns the oldest queued sample, in arrival order. When more than
// Backlog lines are still waiting behind it, all but the newest are
// discarded along with any input the driver still holds, and the newest is
// returned instead, so the display tracks the sensor in real time.
func (s *SerialSource) Next(ctx context.Context) (imu.Raw, error) {
	if err := ctx.Err(); err != nil {
		return imu.Raw{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conn == nil {
		if err := s.connect(); err != nil {
			return imu.Raw{}, err
		}
	}
	c := s.conn

	var line string
	select {
	case l, ok := <-c.lines:
		if !ok {
			return imu.Raw{}, s.lost(c)
		}
		line = l
	default:
		return imu.Raw{}, imu.ErrStale
	}

	if len(c.lines) > s.opts.Backlog {
		dropped := 0
	drain:
		for {
			select {
			case l, ok := <-c.lines:
				if !ok {
					break drain
				}
				line = l
				dropped++
			default:
				break drain
			}
		}
		if r, ok := c.port.(inputResetter); ok {
			if err := r.ResetInputBuffer(); err != nil {
				log.Debugf("serial %s: reset input buffer: %v", s.opts.Port, err)
			}
		}
		log.Debugf("serial %s: dropped %d stale lines", s.opts.Port, dropped)
	}

	return imu.ParseLine(line)
}

// connect opens the port unless the last attempt was too recent.
// Caller holds s.mu.
func (s *SerialSource) connect() error {
	now := s.now()
	if !s.lastAttempt.IsZero() && now.Sub(s.lastAttempt) < s.opts.RetryInterval {
		return fmt.Errorf("serial %s: waiting to reopen: %w", s.opts.Port, imu.ErrSourceUnavailable)
	}
	s.lastAttempt = now

	port, err := s.opts.Open(s.opts.Port, s.opts.BaudRate)
	if err != nil {
		return fmt.Errorf("serial %s: open: %v: %w", s.opts.Port, err, imu.ErrSourceUnavailable)
	}

	c := &serialConn{
		port:  port,
		lines: make(chan string, 2*s.opts.Backlog),
		done:  make(chan struct{}),
	}
	go c.scan()
	s.conn = c

	log.Printf("serial %s: opened at %d baud", s.opts.Port, s.opts.BaudRate)
	return nil
}

// lost tears down a connection whose reader ended. Caller holds s.mu.
func (s *SerialSource) lost(c *serialConn) error {
	c.close()
	s.conn = nil
	err := c.err
	if err == nil {
		err = io.EOF
	}
	return fmt.Errorf("serial %s: read: %v: %w", s.opts.Port, err, imu.ErrSourceUnavailable)
}

// Close releases the port.
func (s *SerialSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conn == nil {
		return nil
	}
	err := s.conn.close()
	s.conn = nil
	return err
}

func (c *serialConn) scan() {
	defer close(c.lines)

	sc := bufio.NewScanner(c.port)
	for sc.Scan() {
		select {
		case c.lines <- sc.Text():
		case <-c.done:
			return
		}
	}
	c.err = sc.Err()
}

func (c *serialConn) close() error {
	select {
	case <-c.done:
		return nil
	default:
		close(c.done)
	}
	return c.port.Close()
}

// PortInfo describes a serial port found on the host.
type PortInfo struct {
	Name    string
	IsUSB   bool
	VID     string
	PID     string
	Serial  string
	Product string
}

// ListPorts enumerates the serial ports of the host.
func ListPorts() ([]PortInfo, error) {
	details, err := enumerator.GetDetailedPortsList()
	if err != nil {
		return nil, fmt.Errorf("list serial ports: %w", err)
	}
	out := make([]PortInfo, 0, len(details))
	for _, d := range details {
		out = append(out, PortInfo{
			Name:    d.Name,
			IsUSB:   d.IsUSB,
			VID:     d.VID,
			PID:     d.PID,
			Serial:  d.SerialNumber,
			Product: d.Product,
		})
	}
	return out, nil
}
