// Package mqtt publishes driver updates to a Polyglot v2 host over MQTT.
package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/bpaauwe/WeatherServicePrototype/internal/domain"
	pahomqtt "github.com/eclipse/paho.mqtt.golang"
)

const topicPrefix = "udi/polyglot/ns/"

// client is the subset of the paho client the sink uses.
type client interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) pahomqtt.Token
	Disconnect(quiesce uint)
}

// Sink sends node-server messages to the host's input topic.
type Sink struct {
	client  client
	profile string
	topic   string
	logger  *slog.Logger
}

// NewSink wraps an already connected client. profile is the node-server
// profile number the host assigned.
func NewSink(c client, profile string, logger *slog.Logger) *Sink {
	return &Sink{
		client:  c,
		profile: profile,
		topic:   topicPrefix + profile,
		logger:  logger,
	}
}

// Connect dials the broker and returns a Sink bound to it.
func Connect(ctx context.Context, broker, clientID, profile string, logger *slog.Logger) (*Sink, error) {
	opts := pahomqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetCleanSession(true).
		SetAutoReconnect(true).
		SetConnectTimeout(10 * time.Second)
	opts.OnConnect = func(pahomqtt.Client) {
		logger.Info("mqtt connected", "broker", broker)
	}
	opts.OnConnectionLost = func(_ pahomqtt.Client, err error) {
		logger.Error("mqtt connection lost", "broker", broker, "error", err)
	}

	c := pahomqtt.NewClient(opts)
	if err := wait(ctx, c.Connect()); err != nil {
		return nil, fmt.Errorf("connect to %s: %w", broker, err)
	}
	return NewSink(c, profile, logger), nil
}

type status struct {
	Address string `json:"address"`
	Driver  string `json:"driver"`
	Value   string `json:"value"`
	UOM     int    `json:"uom"`
}

type message struct {
	Node             string          `json:"node"`
	Status           *status         `json:"status,omitempty"`
	InstallProfile   *installProfile `json:"installprofile,omitempty"`
	RemoveNoticesAll *struct{}       `json:"removenoticesall,omitempty"`
}

type installProfile struct {
	Reboot bool `json:"reboot"`
}

// Publish sends one driver value as a status message.
func (s *Sink) Publish(ctx context.Context, address string, v domain.DriverValue) error {
	return s.send(ctx, message{Status: &status{
		Address: address,
		Driver:  v.Driver,
		Value:   v.Value.String(),
		UOM:     v.UOM,
	}})
}

// InstallProfile asks the host to reload the node-server profile without rebooting.
func (s *Sink) InstallProfile(ctx context.Context) error {
	s.logger.Info("requesting profile install")
	return s.send(ctx, message{InstallProfile: &installProfile{Reboot: false}})
}

// RemoveNoticesAll asks the host to clear this node server's notices.
func (s *Sink) RemoveNoticesAll(ctx context.Context) error {
	s.logger.Info("requesting removal of all notices")
	return s.send(ctx, message{RemoveNoticesAll: &struct{}{}})
}

// Close disconnects, allowing in-flight messages a short grace period.
func (s *Sink) Close() error {
	s.client.Disconnect(250)
	return nil
}

func (s *Sink) send(ctx context.Context, m message) error {
	m.Node = s.profile
	payload, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("encode message: %w", err)
	}
	if err := wait(ctx, s.client.Publish(s.topic, 1, false, payload)); err != nil {
		return fmt.Errorf("publish to %s: %w", s.topic, err)
	}
	return nil
}

func wait(ctx context.Context, t pahomqtt.Token) error {
	select {
	case <-t.Done():
		return t.Error()
	case <-ctx.Done():
		return errors.Join(ctx.Err(), errors.New("mqtt operation did not complete"))
	}
}
