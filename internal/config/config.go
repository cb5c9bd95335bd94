package config

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
	"github.com/go-playground/validator/v10"
)

// Sink kinds accepted by SINK.
const (
	SinkMQTT    = "mqtt"
	SinkKafka   = "kafka"
	SinkConsole = "console"
)

// Config holds all service settings, populated from environment variables.
// The env tag names the variable each field is read from; validation errors
// are reported under that name.
type Config struct {
	// OpenWeatherMap request settings.
	APIKey          string        `env:"OPENWEATHER_API_KEY" validate:"required"`
	APIURL          string        `env:"OPENWEATHER_URL" validate:"required,url"`
	Location        string        `env:"WEATHER_LOCATION" validate:"required"`
	Units           string        `env:"WEATHER_UNITS" validate:"oneof=metric imperial standard"`
	HTTPTimeout     time.Duration `env:"HTTP_TIMEOUT"`
	FetchMaxRetries int           `env:"FETCH_MAX_RETRIES" validate:"min=0,max=10"`

	// Poll loop.
	PollInterval time.Duration `env:"POLL_INTERVAL" validate:"min=1s"`
	PollTimeout  time.Duration `env:"POLL_TIMEOUT"`

	// Node identity as seen by the host.
	NodeAddress string `env:"NODE_ADDRESS" validate:"required"`
	NodeName    string `env:"NODE_NAME"`

	// Driver sink.
	Sink            string   `env:"SINK" validate:"oneof=mqtt kafka console"`
	MQTTBroker      string   `env:"MQTT_BROKER" validate:"required_if=Sink mqtt"`
	MQTTClientID    string   `env:"MQTT_CLIENT_ID"`
	PolyglotProfile string   `env:"POLYGLOT_PROFILE" validate:"required_if=Sink mqtt"`
	KafkaBrokers    []string `env:"KAFKA_BROKERS" validate:"required_if=Sink kafka"`
	KafkaTopic      string   `env:"KAFKA_TOPIC" validate:"required_if=Sink kafka"`

	// StateDB is the SQLite file holding last-known driver values.
	// Empty keeps state in memory.
	StateDB string `env:"STATE_DB"`

	HTTPAddr        string        `env:"HTTP_ADDR"`
	APIAddr         string        `env:"API_ADDR"`
	LogLevel        string        `env:"LOG_LEVEL"`
	LogFormat       string        `env:"LOG_FORMAT"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		if name := f.Tag.Get("env"); name != "" {
			return name
		}
		return f.Name
	})
	return v
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	pollInterval, err := parseDuration("POLL_INTERVAL", "60s")
	if err != nil {
		return nil, err
	}

	pollTimeout, err := parseDuration("POLL_TIMEOUT", "30s")
	if err != nil {
		return nil, err
	}

	httpTimeout, err := parseDuration("HTTP_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}

	retries, err := strconv.Atoi(sharedcfg.EnvOrDefault("FETCH_MAX_RETRIES", "2"))
	if err != nil {
		return nil, fmt.Errorf("invalid FETCH_MAX_RETRIES: %w", err)
	}

	nodeAddress := sharedcfg.EnvOrDefault("NODE_ADDRESS", "weather")

	cfg := &Config{
		APIKey:          os.Getenv("OPENWEATHER_API_KEY"),
		APIURL:          sharedcfg.EnvOrDefault("OPENWEATHER_URL", "http://api.openweathermap.org/data/2.5/weather"),
		Location:        sharedcfg.EnvOrDefault("WEATHER_LOCATION", "95762,us"),
		Units:           sharedcfg.EnvOrDefault("WEATHER_UNITS", "metric"),
		HTTPTimeout:     httpTimeout,
		FetchMaxRetries: retries,
		PollInterval:    pollInterval,
		PollTimeout:     pollTimeout,
		NodeAddress:     nodeAddress,
		NodeName:        sharedcfg.EnvOrDefault("NODE_NAME", "WSPrototype"),
		Sink:            sharedcfg.EnvOrDefault("SINK", SinkMQTT),
		MQTTBroker:      os.Getenv("MQTT_BROKER"),
		MQTTClientID:    sharedcfg.EnvOrDefault("MQTT_CLIENT_ID", "wsp-"+nodeAddress),
		PolyglotProfile: sharedcfg.EnvOrDefault("POLYGLOT_PROFILE", "1"),
		KafkaBrokers:    sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaTopic:      sharedcfg.EnvOrDefault("KAFKA_TOPIC", "weather-drivers"),
		StateDB:         os.Getenv("STATE_DB"),
		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		APIAddr:         sharedcfg.EnvOrDefault("API_ADDR", ":8081"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,
	}
	if _, set := os.LookupEnv("MQTT_BROKER"); !set {
		cfg.MQTTBroker = "tcp://localhost:1883"
	}

	if err := validate.Struct(cfg); err != nil {
		return nil, describe(err)
	}
	return cfg, nil
}

func parseDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(sharedcfg.EnvOrDefault(key, def))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return d, nil
}

// describe turns validator output into messages that name the variable.
func describe(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		switch fe.Tag() {
		case "required", "required_if":
			msgs = append(msgs, fe.Field()+" is required")
		case "oneof":
			msgs = append(msgs, fmt.Sprintf("invalid %s %q: must be one of %s", fe.Field(), fe.Value(), fe.Param()))
		default:
			msgs = append(msgs, fmt.Sprintf("invalid %s: failed %s=%s", fe.Field(), fe.Tag(), fe.Param()))
		}
	}
	return errors.New(strings.Join(msgs, "; "))
}
