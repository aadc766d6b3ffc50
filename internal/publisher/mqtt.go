package publisher

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/energimultiguna/cngops/internal/config"
	"github.com/energimultiguna/cngops/pkg/models"
)

const (
	publishQoS     = 1
	publishTimeout = 10 * time.Second
)

// Publisher publishes tracker totals to an MQTT broker
type Publisher struct {
	client      mqtt.Client
	topicPrefix string
}

// New connects to the configured broker
func New(cfg *config.Config) (*Publisher, error) {
	mqttCfg := cfg.MQTT
	if !mqttCfg.Enabled {
		return nil, fmt.Errorf("MQTT publishing is not enabled in config")
	}
	if mqttCfg.Broker == "" {
		return nil, fmt.Errorf("MQTT broker address is required when enabled")
	}

	clientID := mqttCfg.ClientID
	if clientID == "" {
		clientID = "cngops"
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(fmt.Sprintf("tcp://%s", mqttCfg.Broker))
	opts.SetClientID(clientID)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectTimeout(publishTimeout)

	if mqttCfg.Username != "" {
		opts.SetUsername(mqttCfg.Username)
	}
	if mqttCfg.Password != "" {
		opts.SetPassword(mqttCfg.Password)
	}

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.WaitTimeout(publishTimeout) && token.Error() != nil {
		return nil, fmt.Errorf("connecting to MQTT broker: %w", token.Error())
	}

	return &Publisher{
		client:      client,
		topicPrefix: cfg.GetTopicPrefix(),
	}, nil
}

// TrackerPayload is the retained state published per transport
type TrackerPayload struct {
	PlateNumber    string  `json:"transport_plate_number"`
	RestockVolume  float64 `json:"restock_volume_cumul"`
	VolumeOut      float64 `json:"volume_out_cumul"`
	VolumeConsumed float64 `json:"volume_consumed_cumul"`
	ChargedVolume  float64 `json:"charged_volume_cumul"`
	LastDelivery   string  `json:"last_delivery,omitempty"`
	UpdatedAt      string  `json:"updated_at"`
}

// NewTrackerPayload takes the latest cumulative value of each series
func NewTrackerPayload(s *models.TrackerSeries, now time.Time) TrackerPayload {
	p := TrackerPayload{PlateNumber: s.PlateNumber, UpdatedAt: now.UTC().Format(time.RFC3339)}
	if last, ok := models.Last(s.RestockCumulative); ok {
		p.RestockVolume = last.Value
	}
	if last, ok := models.Last(s.OutCumulative); ok {
		p.VolumeOut = last.Value
		p.LastDelivery = last.Date.Format(models.DateLayout)
	}
	if last, ok := models.Last(s.ConsumedCumulative); ok {
		p.VolumeConsumed = last.Value
	}
	if last, ok := models.Last(s.ChargedCumulative); ok {
		p.ChargedVolume = last.Value
	}
	return p
}

// Topic returns the tracker topic of a transport. Plate separators become
// underscores so the plate stays a single topic level.
func Topic(prefix, plate string) string {
	level := strings.NewReplacer(" ", "_", "/", "_", "+", "_", "#", "_").Replace(strings.TrimSpace(plate))
	return fmt.Sprintf("%s/%s/tracker", prefix, strings.ToLower(level))
}

// PublishTracker publishes the latest totals of a transport as a retained message
func (p *Publisher) PublishTracker(s *models.TrackerSeries) error {
	body, err := json.Marshal(NewTrackerPayload(s, time.Now()))
	if err != nil {
		return fmt.Errorf("encoding payload: %w", err)
	}

	token := p.client.Publish(Topic(p.topicPrefix, s.PlateNumber), publishQoS, true, body)
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("publishing %s: timed out", s.PlateNumber)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publishing %s: %w", s.PlateNumber, err)
	}
	return nil
}

// Close disconnects from the MQTT broker
func (p *Publisher) Close() {
	if p.client != nil && p.client.IsConnected() {
		p.client.Disconnect(250)
	}
}
