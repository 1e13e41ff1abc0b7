// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/relabs-tech/imu_monitor/internal/config"
	"github.com/relabs-tech/imu_monitor/internal/imu"
	"github.com/relabs-tech/imu_monitor/internal/store"
)

const captureDir = "captures"

var corsHeaders = map[string]string{
	"Access-Control-Allow-Origin":  "*",
	"Access-Control-Allow-Methods": "GET, OPTIONS, POST",
	"Access-Control-Allow-Headers": "Content-Type,X-Amz-Date,Authorization,X-Api-Key,X-Amz-Security-Token",
}

// sensorAPI serves device readings and captured images.
type sensorAPI struct {
	readings *store.Readings
	blobs    *store.Blobs
	signer   *store.Signer

	deviceID  string
	limit     int
	ttl       time.Duration
	publicURL string
	now       func() time.Time
}

// NewSensorAPI builds the HTTP handler of the sensor API.
func NewSensorAPI(cfg *config.Config, readings *store.Readings, blobs *store.Blobs) *gin.Engine {
	api := &sensorAPI{
		readings:  readings,
		blobs:     blobs,
		signer:    store.NewSigner([]byte(cfg.APISigningKey)),
		deviceID:  cfg.APIDeviceID,
		limit:     cfg.APIQueryLimit,
		ttl:       time.Duration(cfg.APIURLTTL) * time.Second,
		publicURL: cfg.APIPublicURL,
		now:       time.Now,
	}
	return api.router()
}

func (api *sensorAPI) router() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(), cors())

	router.GET("/data", api.getData)
	router.Any("/capture", api.capture)
	router.GET("/objects/*key", api.getObject)

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "endpoint not found"})
	})
	return router
}

// requestLogger logs one line per request through logrus.
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.WithFields(log.Fields{
			"method":  c.Request.Method,
			"path":    c.Request.URL.Path,
			"status":  c.Writer.Status(),
			"latency": time.Since(start),
		}).Debug("sensor api request")
	}
}

// cors adds the CORS headers to every response and answers preflights.
func cors() gin.HandlerFunc {
	return func(c *gin.Context) {
		for k, v := range corsHeaders {
			c.Header(k, v)
		}
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

func (api *sensorAPI) getData(c *gin.Context) {
	items, err := api.readings.Latest(c.Request.Context(), api.deviceID, api.limit)
	if err != nil {
		log.Errorf("sensor api: read readings: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, items)
}

type captureRequest struct {
	Image string `json:"image"`
}

func (api *sensorAPI) capture(c *gin.Context) {
	switch c.Request.Method {
	case http.MethodPost:
		api.postCapture(c)
	case http.MethodGet:
		c.JSON(http.StatusOK, gin.H{"message": "use POST with a base64 image to store a capture and get a signed URL"})
	default:
		c.JSON(http.StatusMethodNotAllowed, gin.H{"error": "method not allowed"})
	}
}

func (api *sensorAPI) postCapture(c *gin.Context) {
	data, err := decodeCapture(c)
	if err != nil {
		log.Warnf("sensor api: POST /capture: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	key := fmt.Sprintf("%s/capture_%d_%s.jpg", captureDir, api.now().Unix(), uuid.NewString()[:8])
	if err := api.blobs.Put(key, data); err != nil {
		log.Errorf("sensor api: store capture: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	log.Debugf("sensor api: stored %s (%d bytes)", key, len(data))

	c.JSON(http.StatusOK, gin.H{
		"message": "image received and stored in " + captureDir + "/",
		"url":     api.signer.URL(api.baseURL(c), key, api.ttl),
		"size":    len(data),
	})
}

func decodeCapture(c *gin.Context) ([]byte, error) {
	var req captureRequest
	if err := json.NewDecoder(c.Request.Body).Decode(&req); err != nil {
		return nil, fmt.Errorf("invalid JSON body: %w", err)
	}
	if req.Image == "" {
		return nil, errors.New("no 'image' in JSON body")
	}
	data, err := base64.StdEncoding.DecodeString(req.Image)
	if err != nil {
		return nil, fmt.Errorf("invalid base64 image: %w", err)
	}
	return data, nil
}

// baseURL is the configured public URL, or the one the client used.
func (api *sensorAPI) baseURL(c *gin.Context) string {
	if api.publicURL != "" {
		return api.publicURL
	}
	scheme := "http"
	if c.Request.TLS != nil {
		scheme = "https"
	}
	if p := c.GetHeader("X-Forwarded-Proto"); p != "" {
		scheme = p
	}
	return scheme + "://" + c.Request.Host
}

func (api *sensorAPI) getObject(c *gin.Context) {
	key := strings.TrimPrefix(c.Param("key"), "/")

	expires, err := strconv.ParseInt(c.Query("expires"), 10, 64)
	if err != nil {
		c.JSON(http.StatusForbidden, gin.H{"error": "missing or invalid expires"})
		return
	}
	if err := api.signer.Verify(key, expires, c.Query("signature")); err != nil {
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
		return
	}

	f, info, err := api.blobs.Open(key)
	if errors.Is(err, store.ErrNotFound) || errors.Is(err, store.ErrInvalidKey) {
		c.JSON(http.StatusNotFound, gin.H{"error": "object not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	defer f.Close()

	c.Header("Content-Type", "image/jpeg")
	c.Header("Cache-Control", "no-cache, no-store, must-revalidate")
	http.ServeContent(c.Writer, c.Request, info.Name(), info.ModTime(), f)
}

// ingestReadings stores every reading published on topic.
func ingestReadings(ctx context.Context, client mqtt.Client, topic string, readings *store.Readings) error {
	token := client.Subscribe(topic, 1, func(_ mqtt.Client, msg mqtt.Message) {
		if err := storeReading(ctx, readings, msg.Payload()); err != nil {
			log.Warnf("sensor api: ingest from %s: %v", msg.Topic(), err)
		}
	})
	token.Wait()
	if token.Error() != nil {
		return token.Error()
	}
	log.Printf("sensor api: ingesting readings from %s", topic)
	return nil
}

func storeReading(ctx context.Context, readings *store.Readings, payload []byte) error {
	var r imu.Reading
	if err := json.Unmarshal(payload, &r); err != nil {
		return fmt.Errorf("decode reading: %w", err)
	}
	if r.DeviceID == "" {
		return errors.New("reading has no DeviceId")
	}
	if r.Timestamp == 0 {
		r.Timestamp = time.Now().UnixMilli()
	}
	return readings.Insert(ctx, r)
}

// RunSensorAPI opens the stores, optionally starts MQTT ingest and serves
// the API until ctx is done.
func RunSensorAPI(ctx context.Context, cfg *config.Config) error {
	readings, err := store.OpenReadings(cfg.APIDBPath)
	if err != nil {
		return fmt.Errorf("open readings db: %w", err)
	}
	defer readings.Close()

	blobs, err := store.OpenBlobs(cfg.APIBucketDir)
	if err != nil {
		return err
	}
	defer blobs.Close()

	if cfg.MQTTBroker != "" && cfg.TopicReadings != "" {
		client, err := connectMQTT(cfg, cfg.MQTTClientIDAPI)
		if err != nil {
			return err
		}
		defer client.Disconnect(250)
		if err := ingestReadings(ctx, client, cfg.TopicReadings, readings); err != nil {
			return err
		}
	}

	if log.IsLevelEnabled(log.DebugLevel) {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	srv := &http.Server{
		Addr:    cfg.APIListenAddr,
		Handler: NewSensorAPI(cfg, readings, blobs),
	}
	return serveUntilDone(ctx, srv, "sensor api")
}
