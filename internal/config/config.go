// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package config

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/relabs-tech/imu_monitor/internal/orientation"
)

// EnvPrefix prefixes environment overrides, e.g. IMU_SERIAL_PORT.
const EnvPrefix = "IMU"

// Acquisition sources.
const (
	SourceSerial = "serial"
	SourceSPI    = "spi"
	SourceHTTP   = "http"
	SourceMock   = "mock"
)

// Config holds all application configuration values.
type Config struct {
	// Logging
	LogLevel  string `yaml:"LOG_LEVEL"`
	LogFormat string `yaml:"LOG_FORMAT"`

	// Acquisition
	Source              string `yaml:"SOURCE"`
	SerialPort          string `yaml:"SERIAL_PORT"`
	SerialBaudRate      int    `yaml:"SERIAL_BAUD_RATE"`
	SerialDriver        string `yaml:"SERIAL_DRIVER"`            // "bugst" or "jacobsa"
	SerialBacklogLines  int    `yaml:"SERIAL_BACKLOG_LINES"`     // queued lines before stale ones are dropped
	SerialRetryInterval int    `yaml:"SERIAL_RETRY_INTERVAL_MS"` // milliseconds
	IMUSPIDevice        string `yaml:"IMU_SPI_DEVICE"`
	IMUCSPin            string `yaml:"IMU_CS_PIN"`
	HTTPSourceURL       string `yaml:"HTTP_SOURCE_URL"`
	HTTPSourceTimeout   int    `yaml:"HTTP_SOURCE_TIMEOUT_MS"` // milliseconds

	// Filter calibration. The scales are sensor specific and required.
	AccelScale   float64 `yaml:"ACCEL_SCALE"`
	GyroScale    float64 `yaml:"GYRO_SCALE"`
	FilterAlpha  float64 `yaml:"FILTER_ALPHA"`
	GyroBiasX    float64 `yaml:"GYRO_BIAS_X"`
	GyroBiasY    float64 `yaml:"GYRO_BIAS_Y"`
	GyroBiasZ    float64 `yaml:"GYRO_BIAS_Z"`
	UpdatePeriod int     `yaml:"UPDATE_PERIOD_MS"` // milliseconds

	// Rendering
	CubeHalfSize   float64  `yaml:"CUBE_HALF_SIZE"`
	Displays       []string `yaml:"DISPLAYS"` // console, tui, oled, mqtt
	DisplayI2CBus  string   `yaml:"DISPLAY_I2C_BUS"`
	DisplayI2CAddr uint16   `yaml:"DISPLAY_I2C_ADDR"`

	// MQTT
	MQTTBroker          string `yaml:"MQTT_BROKER"`
	MQTTClientIDMonitor string `yaml:"MQTT_CLIENT_ID_MONITOR"`
	MQTTClientIDConsole string `yaml:"MQTT_CLIENT_ID_CONSOLE"`
	MQTTClientIDWeb     string `yaml:"MQTT_CLIENT_ID_WEB"`
	MQTTClientIDAPI     string `yaml:"MQTT_CLIENT_ID_API"`
	TopicPose           string `yaml:"TOPIC_POSE"`
	TopicReadings       string `yaml:"TOPIC_READINGS"`

	// Web viewer
	WebServerPort int    `yaml:"WEB_SERVER_PORT"`
	WebStaticDir  string `yaml:"WEB_STATIC_DIR"`

	// Sensor API
	APIListenAddr string `yaml:"API_LISTEN_ADDR"`
	APIPublicURL  string `yaml:"API_PUBLIC_URL"`
	APIDBPath     string `yaml:"API_DB_PATH"`
	APIDeviceID   string `yaml:"API_DEVICE_ID"`
	APIBucketDir  string `yaml:"API_BUCKET_DIR"`
	APISigningKey string `yaml:"API_SIGNING_KEY"`
	APIURLTTL     int    `yaml:"API_URL_TTL_S"` // seconds
	APIQueryLimit int    `yaml:"API_QUERY_LIMIT"`

	// Camera capture poller
	CameraURL         string `yaml:"CAMERA_URL"`
	CaptureAPIURL     string `yaml:"CAPTURE_API_URL"`
	CaptureIntervalMS int    `yaml:"CAPTURE_INTERVAL_MS"`
	CaptureTimeout    int    `yaml:"CAPTURE_TIMEOUT_MS"`
	CaptureOverlay    bool   `yaml:"CAPTURE_OVERLAY"`
}

// OLEDAddr is the only I2C address the ssd1306 driver talks to.
const OLEDAddr = 0x3C

// keys lists every recognised configuration key.
var keys = []string{
	"LOG_LEVEL", "LOG_FORMAT",
	"SOURCE", "SERIAL_PORT", "SERIAL_BAUD_RATE", "SERIAL_DRIVER", "SERIAL_BACKLOG_LINES",
	"SERIAL_RETRY_INTERVAL_MS", "IMU_SPI_DEVICE", "IMU_CS_PIN", "HTTP_SOURCE_URL", "HTTP_SOURCE_TIMEOUT_MS",
	"ACCEL_SCALE", "GYRO_SCALE", "FILTER_ALPHA", "GYRO_BIAS_X", "GYRO_BIAS_Y", "GYRO_BIAS_Z", "UPDATE_PERIOD_MS",
	"CUBE_HALF_SIZE", "DISPLAYS", "DISPLAY_I2C_BUS", "DISPLAY_I2C_ADDR",
	"MQTT_BROKER", "MQTT_CLIENT_ID_MONITOR", "MQTT_CLIENT_ID_CONSOLE", "MQTT_CLIENT_ID_WEB",
	"MQTT_CLIENT_ID_API", "TOPIC_POSE", "TOPIC_READINGS",
	"WEB_SERVER_PORT", "WEB_STATIC_DIR",
	"API_LISTEN_ADDR", "API_PUBLIC_URL", "API_DB_PATH", "API_DEVICE_ID", "API_BUCKET_DIR",
	"API_SIGNING_KEY", "API_URL_TTL_S", "API_QUERY_LIMIT",
	"CAMERA_URL", "CAPTURE_API_URL", "CAPTURE_INTERVAL_MS", "CAPTURE_TIMEOUT_MS", "CAPTURE_OVERLAY",
}

// flagKeys maps command line flags to the keys they override.
var flagKeys = map[string]string{
	"log-level":  "LOG_LEVEL",
	"log-format": "LOG_FORMAT",
	"source":     "SOURCE",
	"port":       "SERIAL_PORT",
	"displays":   "DISPLAYS",
	"listen":     "API_LISTEN_ADDR",
	"camera":     "CAMERA_URL",
}

// Default returns the configuration used for keys absent from every source.
func Default() *Config {
	return &Config{
		LogLevel:  "info",
		LogFormat: "text",

		Source:              SourceSerial,
		SerialBaudRate:      115200,
		SerialDriver:        "bugst",
		SerialBacklogLines:  8,
		SerialRetryInterval: 1000,
		HTTPSourceTimeout:   5000,

		FilterAlpha:  orientation.DefaultAlpha,
		UpdatePeriod: 20,

		CubeHalfSize:   0.5,
		Displays:       []string{"console"},
		DisplayI2CAddr: OLEDAddr,

		MQTTClientIDMonitor: "imu-monitor",
		MQTTClientIDConsole: "imu-console-subscriber",
		MQTTClientIDWeb:     "imu-web-subscriber",
		MQTTClientIDAPI:     "imu-sensor-api",
		TopicPose:           "imu/pose",
		TopicReadings:       "imu/readings",

		WebServerPort: 8080,
		WebStaticDir:  "web",

		APIListenAddr: ":8090",
		APIDBPath:     "readings.db",
		APIDeviceID:   "DRON_ESP32",
		APIBucketDir:  "bucket",
		APIURLTTL:     3600,
		APIQueryLimit: 10,

		CaptureAPIURL:     "http://localhost:8090/capture",
		CaptureIntervalMS: 500,
		CaptureTimeout:    5000,
		CaptureOverlay:    true,
	}
}

// Load reads the KEY=VALUE configuration file at configPath (skipped when
// empty), then applies IMU_* environment overrides and any changed flags
// from flags (may be nil). Unknown keys in the file are rejected.
func Load(configPath string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		v.SetConfigType("env")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	known := make(map[string]bool, len(keys))
	for _, k := range keys {
		known[strings.ToLower(k)] = true
	}
	var unknown []string
	for _, k := range v.AllKeys() {
		if !known[k] {
			unknown = append(unknown, strings.ToUpper(k))
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return nil, fmt.Errorf("unknown config key(s): %s", strings.Join(unknown, ", "))
	}

	if flags != nil {
		for name, key := range flagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(strings.ToLower(key), f); err != nil {
					return nil, fmt.Errorf("bind flag --%s: %w", name, err)
				}
			}
		}
	}

	cfg := Default()
	for _, key := range keys {
		if !v.IsSet(strings.ToLower(key)) {
			continue
		}
		if err := cfg.setValue(key, strings.TrimSpace(v.GetString(strings.ToLower(key)))); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

// setValue sets a config value based on the key.
func (c *Config) setValue(key, value string) error {
	var err error
	switch key {
	// Logging
	case "LOG_LEVEL":
		c.LogLevel = value
	case "LOG_FORMAT":
		c.LogFormat = value

	// Acquisition
	case "SOURCE":
		switch value {
		case SourceSerial, SourceSPI, SourceHTTP, SourceMock:
			c.Source = value
		default:
			return fmt.Errorf("SOURCE must be one of serial, spi, http, mock, got %q", value)
		}
	case "SERIAL_PORT":
		c.SerialPort = value
	case "SERIAL_BAUD_RATE":
		c.SerialBaudRate, err = positiveInt(key, value)
	case "SERIAL_DRIVER":
		if value != "bugst" && value != "jacobsa" {
			return fmt.Errorf("SERIAL_DRIVER must be bugst or jacobsa, got %q", value)
		}
		c.SerialDriver = value
	case "SERIAL_BACKLOG_LINES":
		c.SerialBacklogLines, err = positiveInt(key, value)
	case "SERIAL_RETRY_INTERVAL_MS":
		c.SerialRetryInterval, err = positiveInt(key, value)
	case "IMU_SPI_DEVICE":
		c.IMUSPIDevice = value
	case "IMU_CS_PIN":
		c.IMUCSPin = value
	case "HTTP_SOURCE_URL":
		c.HTTPSourceURL = value
	case "HTTP_SOURCE_TIMEOUT_MS":
		c.HTTPSourceTimeout, err = positiveInt(key, value)

	// Filter
	case "ACCEL_SCALE":
		c.AccelScale, err = parseFloat(key, value)
	case "GYRO_SCALE":
		c.GyroScale, err = parseFloat(key, value)
	case "FILTER_ALPHA":
		c.FilterAlpha, err = parseFloat(key, value)
		if err == nil && (c.FilterAlpha < 0 || c.FilterAlpha > 1) {
			return fmt.Errorf("FILTER_ALPHA must be in [0,1], got %v", c.FilterAlpha)
		}
	case "GYRO_BIAS_X":
		c.GyroBiasX, err = parseFloat(key, value)
	case "GYRO_BIAS_Y":
		c.GyroBiasY, err = parseFloat(key, value)
	case "GYRO_BIAS_Z":
		c.GyroBiasZ, err = parseFloat(key, value)
	case "UPDATE_PERIOD_MS":
		c.UpdatePeriod, err = positiveInt(key, value)

	// Rendering
	case "CUBE_HALF_SIZE":
		c.CubeHalfSize, err = parseFloat(key, value)
		if err == nil && c.CubeHalfSize <= 0 {
			return fmt.Errorf("CUBE_HALF_SIZE must be positive, got %v", c.CubeHalfSize)
		}
	case "DISPLAYS":
		c.Displays = nil
		for _, d := range strings.Split(value, ",") {
			d = strings.TrimSpace(d)
			switch d {
			case "":
				continue
			case "console", "tui", "oled", "mqtt":
				c.Displays = append(c.Displays, d)
			default:
				return fmt.Errorf("unknown display %q in DISPLAYS (console, tui, oled, mqtt)", d)
			}
		}
	case "DISPLAY_I2C_BUS":
		c.DisplayI2CBus = value
	case "DISPLAY_I2C_ADDR":
		addr, perr := strconv.ParseUint(value, 0, 16)
		if perr != nil {
			return fmt.Errorf("invalid DISPLAY_I2C_ADDR %q: %w", value, perr)
		}
		if addr != OLEDAddr {
			return fmt.Errorf("invalid DISPLAY_I2C_ADDR %q: the ssd1306 driver only supports 0x%02X", value, OLEDAddr)
		}
		c.DisplayI2CAddr = uint16(addr)

	// MQTT
	case "MQTT_BROKER":
		c.MQTTBroker = value
	case "MQTT_CLIENT_ID_MONITOR":
		c.MQTTClientIDMonitor = value
	case "MQTT_CLIENT_ID_CONSOLE":
		c.MQTTClientIDConsole = value
	case "MQTT_CLIENT_ID_WEB":
		c.MQTTClientIDWeb = value
	case "MQTT_CLIENT_ID_API":
		c.MQTTClientIDAPI = value
	case "TOPIC_POSE":
		c.TopicPose = value
	case "TOPIC_READINGS":
		c.TopicReadings = value

	// Web viewer
	case "WEB_SERVER_PORT":
		c.WebServerPort, err = positiveInt(key, value)
	case "WEB_STATIC_DIR":
		c.WebStaticDir = value

	// Sensor API
	case "API_LISTEN_ADDR":
		c.APIListenAddr = value
	case "API_PUBLIC_URL":
		c.APIPublicURL = strings.TrimRight(value, "/")
	case "API_DB_PATH":
		c.APIDBPath = value
	case "API_DEVICE_ID":
		c.APIDeviceID = value
	case "API_BUCKET_DIR":
		c.APIBucketDir = value
	case "API_SIGNING_KEY":
		c.APISigningKey = value
	case "API_URL_TTL_S":
		c.APIURLTTL, err = positiveInt(key, value)
	case "API_QUERY_LIMIT":
		c.APIQueryLimit, err = positiveInt(key, value)

	// Camera capture poller
	case "CAMERA_URL":
		c.CameraURL = value
	case "CAPTURE_API_URL":
		c.CaptureAPIURL = value
	case "CAPTURE_INTERVAL_MS":
		c.CaptureIntervalMS, err = positiveInt(key, value)
	case "CAPTURE_TIMEOUT_MS":
		c.CaptureTimeout, err = positiveInt(key, value)
	case "CAPTURE_OVERLAY":
		c.CaptureOverlay, err = strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid CAPTURE_OVERLAY %q: %w", value, err)
		}

	default:
		return fmt.Errorf("unknown config key: %q", key)
	}

	return err
}

func positiveInt(key, value string) (int, error) {
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	if n <= 0 {
		return 0, fmt.Errorf("%s must be positive, got %d", key, n)
	}
	return n, nil
}

func parseFloat(key, value string) (float64, error) {
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	return f, nil
}

// ValidateMonitor checks the fields the orientation monitor needs.
func (c *Config) ValidateMonitor() error {
	if c.AccelScale == 0 {
		return fmt.Errorf("ACCEL_SCALE is required")
	}
	if c.GyroScale == 0 {
		return fmt.Errorf("GYRO_SCALE is required")
	}
	if _, err := c.FilterParams(); err != nil {
		return err
	}
	switch c.Source {
	case SourceSerial:
		if c.SerialPort == "" {
			return fmt.Errorf("SERIAL_PORT is required for the serial source")
		}
	case SourceSPI:
		if c.IMUSPIDevice == "" || c.IMUCSPin == "" {
			return fmt.Errorf("IMU_SPI_DEVICE and IMU_CS_PIN are required for the spi source")
		}
	case SourceHTTP:
		if c.HTTPSourceURL == "" {
			return fmt.Errorf("HTTP_SOURCE_URL is required for the http source")
		}
	}
	if len(c.Displays) == 0 {
		return fmt.Errorf("DISPLAYS must name at least one display")
	}
	for _, d := range c.Displays {
		if d == "mqtt" && c.MQTTBroker == "" {
			return fmt.Errorf("MQTT_BROKER is required for the mqtt display")
		}
	}
	return nil
}

// ValidateSubscriber checks the fields the MQTT pose consumers need.
func (c *Config) ValidateSubscriber() error {
	if c.MQTTBroker == "" {
		return fmt.Errorf("MQTT_BROKER is required")
	}
	if c.TopicPose == "" {
		return fmt.Errorf("TOPIC_POSE is required")
	}
	return nil
}

// ValidateAPI checks the fields the sensor API needs.
func (c *Config) ValidateAPI() error {
	if c.APIDBPath == "" {
		return fmt.Errorf("API_DB_PATH is required")
	}
	if c.APIBucketDir == "" {
		return fmt.Errorf("API_BUCKET_DIR is required")
	}
	if c.APIDeviceID == "" {
		return fmt.Errorf("API_DEVICE_ID is required")
	}
	if len(c.APISigningKey) < 16 {
		return fmt.Errorf("API_SIGNING_KEY is required (at least 16 characters)")
	}
	return nil
}

// ValidateCapture checks the fields the camera capture poller needs.
func (c *Config) ValidateCapture() error {
	if c.CameraURL == "" {
		return fmt.Errorf("CAMERA_URL is required")
	}
	if c.CaptureAPIURL == "" {
		return fmt.Errorf("CAPTURE_API_URL is required")
	}
	return nil
}

// FilterParams returns the estimator parameters described by the config.
func (c *Config) FilterParams() (orientation.Params, error) {
	p, err := orientation.NewParams(c.AccelScale, c.GyroScale, c.FilterAlpha)
	if err != nil {
		return orientation.Params{}, err
	}
	p.GyroBias = [3]float64{c.GyroBiasX, c.GyroBiasY, c.GyroBiasZ}
	return p, p.Validate()
}

// UpdateInterval is the monitor tick period.
func (c *Config) UpdateInterval() time.Duration {
	return time.Duration(c.UpdatePeriod) * time.Millisecond
}

// CaptureInterval is the camera polling period.
func (c *Config) CaptureInterval() time.Duration {
	return time.Duration(c.CaptureIntervalMS) * time.Millisecond
}

// WriteYAML dumps the effective configuration. The signing key is masked.
func (c *Config) WriteYAML(w io.Writer) error {
	out := *c
	if out.APISigningKey != "" {
		out.APISigningKey = "********"
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(&out); err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	return enc.Close()
}
