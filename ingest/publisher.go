package ingest

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

const (
	publishTimeout = 5 * time.Second
	connectTimeout = 10 * time.Second
)

// ErrNotConnected is returned when publishing without a broker connection
var ErrNotConnected = errors.New("MQTT client not connected")

// envOr returns the environment variable if set, otherwise the fallback
func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// ConnectMQTT connects to the broker named by MQTT_BROKER or the config.
// Environment variables take precedence over config values. It returns a
// nil client and nil error when no broker is configured.
func ConnectMQTT(cfg MQTTConfig, logger *slog.Logger) (mqtt.Client, error) {
	if logger == nil {
		logger = slog.Default()
	}

	broker := envOr("MQTT_BROKER", cfg.Broker)
	if broker == "" {
		logger.Info("MQTT disabled: no broker configured")
		return nil, nil
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(broker)
	clientID := envOr("MQTT_CLIENT_ID", cfg.ClientID)
	if clientID == "" {
		clientID = "planingest"
	}
	opts.SetClientID(clientID)

	if username := envOr("MQTT_USERNAME", cfg.Username); username != "" {
		opts.SetUsername(username)
		opts.SetPassword(envOr("MQTT_PASSWORD", cfg.Password))
	}

	opts.SetConnectTimeout(connectTimeout)
	opts.SetKeepAlive(60 * time.Second)
	opts.SetPingTimeout(10 * time.Second)
	opts.SetCleanSession(true)
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		logger.Warn("MQTT connection lost", "error", err)
	})

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(connectTimeout) {
		return nil, fmt.Errorf("connecting to %s: timeout", broker)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connecting to %s: %w", broker, err)
	}

	logger.Info("connected to MQTT broker", "broker", broker)
	return client, nil
}

// Summary is the compact description published next to the full result
type Summary struct {
	VenueID     string `json:"venue_id"`
	Zones       int    `json:"zones"`
	Connections int    `json:"connections"`
	PerchPoints int    `json:"perch_points"`
	Floors      []int  `json:"floors"`
	Timestamp   int64  `json:"timestamp"`
}

// Publisher publishes ingestion results to MQTT
type Publisher struct {
	client        mqtt.Client
	publishPrefix string
	qos           byte
	retain        bool
	logger        *slog.Logger
	now           func() time.Time
}

// NewPublisher creates a result publisher. If client is nil, every publish
// fails with ErrNotConnected.
func NewPublisher(client mqtt.Client, prefix string, logger *slog.Logger) *Publisher {
	if prefix == "" {
		prefix = "planingest"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Publisher{
		client:        client,
		publishPrefix: strings.TrimSuffix(prefix, "/"),
		qos:           1,
		retain:        true,
		logger:        logger,
		now:           time.Now,
	}
}

// FloorplanTopic returns the topic carrying a venue's GeoJSON floor plan
func (p *Publisher) FloorplanTopic(venueID string) string {
	return fmt.Sprintf("%s/%s/floorplan", p.publishPrefix, venueID)
}

// SummaryTopic returns the topic carrying a venue's result summary
func (p *Publisher) SummaryTopic(venueID string) string {
	return fmt.Sprintf("%s/%s/summary", p.publishPrefix, venueID)
}

// PublishResult publishes the result as a GeoJSON feature collection
// followed by its summary. Both messages are retained.
func (p *Publisher) PublishResult(venueID string, res *Result) error {
	if venueID == "" || strings.ContainsAny(venueID, "/+#") {
		return fmt.Errorf("invalid venue id %q", venueID)
	}
	if p.client == nil || !p.client.IsConnected() {
		return ErrNotConnected
	}
	if res == nil {
		res = NewResult()
	}

	geo, err := json.Marshal(res.ToFeatureCollection())
	if err != nil {
		return fmt.Errorf("marshaling floor plan: %w", err)
	}
	if err := p.publish(p.FloorplanTopic(venueID), geo); err != nil {
		return err
	}

	summary, err := json.Marshal(Summary{
		VenueID:     venueID,
		Zones:       len(res.Zones),
		Connections: len(res.Connections),
		PerchPoints: len(res.PerchPoints),
		Floors:      res.Floors(),
		Timestamp:   p.now().Unix(),
	})
	if err != nil {
		return fmt.Errorf("marshaling summary: %w", err)
	}
	if err := p.publish(p.SummaryTopic(venueID), summary); err != nil {
		return err
	}

	p.logger.Info("published floor plan", "venue", venueID, "zones", len(res.Zones))
	return nil
}

func (p *Publisher) publish(topic string, payload []byte) error {
	token := p.client.Publish(topic, p.qos, p.retain, payload)
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("publishing to %s: timeout", topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publishing to %s: %w", topic, err)
	}
	return nil
}
