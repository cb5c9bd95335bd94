package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"math"
	"testing"
	"time"

	"github.com/bpaauwe/WeatherServicePrototype/internal/domain"
	"github.com/jonboulle/clockwork"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockWriter struct {
	msgs   []kafkago.Message
	err    error
	closed bool
}

func (m *mockWriter) WriteMessages(_ context.Context, msgs ...kafkago.Message) error {
	if m.err != nil {
		return m.err
	}
	m.msgs = append(m.msgs, msgs...)
	return nil
}

func (m *mockWriter) Close() error {
	m.closed = true
	return nil
}

func TestSerializeToMessage(t *testing.T) {
	now := time.Date(2018, 10, 31, 21, 0, 0, 0, time.UTC)
	v := domain.NewDriverValue(domain.DriverConditions, domain.Int(800))

	msg, err := serializeToMessage("weather", v, now)
	require.NoError(t, err)

	assert.Equal(t, []byte("weather/GV13"), msg.Key)
	assert.JSONEq(t,
		`{"address":"weather","driver":"GV13","value":800,"uom":25,"report":true,"force":true,"published_at":"2018-10-31T21:00:00Z"}`,
		string(msg.Value))
	assert.Len(t, msg.Headers, 2)
	assert.Equal(t, "driver", msg.Headers[0].Key)
	assert.Equal(t, []byte("GV13"), msg.Headers[0].Value)
	assert.Equal(t, "published_at", msg.Headers[1].Key)
	assert.Equal(t, []byte(now.Format(time.RFC3339)), msg.Headers[1].Value)

	var back DriverMessage
	require.NoError(t, json.Unmarshal(msg.Value, &back))
	assert.True(t, back.Value.IsIntegral())
}

func TestSerializeToMessage_NonFiniteValue(t *testing.T) {
	_, err := serializeToMessage("weather", domain.NewDriverValue(domain.DriverTemperature, domain.Float(math.Inf(1))), time.Now())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "CLITEMP")
}

func TestWriter_Publish(t *testing.T) {
	mw := &mockWriter{}
	clock := clockwork.NewFakeClockAt(time.Date(2024, 4, 26, 15, 0, 0, 0, time.UTC))
	w := &Writer{writer: mw, clock: clock, logger: slog.New(slog.NewTextHandler(io.Discard, nil))}

	require.NoError(t, w.Publish(context.Background(), "weather", domain.NewDriverValue(domain.DriverTemperature, domain.Float(22.03))))
	require.Len(t, mw.msgs, 1)
	assert.Equal(t, []byte("weather/CLITEMP"), mw.msgs[0].Key)
	assert.Contains(t, string(mw.msgs[0].Value), `"value":22.03`)
	assert.Contains(t, string(mw.msgs[0].Value), `"published_at":"2024-04-26T15:00:00Z"`)

	mw.err = errors.New("leader not available")
	require.Error(t, w.Publish(context.Background(), "weather", domain.NewDriverValue(domain.DriverTemperature, domain.Float(1))))

	require.NoError(t, w.Close())
	assert.True(t, mw.closed)
}
