// Package console writes driver updates as JSON lines, for dry runs.
package console

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"github.com/bpaauwe/WeatherServicePrototype/internal/domain"
)

// Sink writes one JSON object per driver update.
type Sink struct {
	mu  sync.Mutex
	enc *json.Encoder
}

func NewSink(w io.Writer) *Sink {
	return &Sink{enc: json.NewEncoder(w)}
}

type line struct {
	Address     string       `json:"address"`
	Driver      string       `json:"driver"`
	Value       domain.Value `json:"value"`
	UOM         int          `json:"uom"`
	Description string       `json:"description,omitempty"`
}

func (s *Sink) Publish(_ context.Context, address string, v domain.DriverValue) error {
	l := line{Address: address, Driver: v.Driver, Value: v.Value, UOM: v.UOM}
	if v.Driver == domain.DriverConditions {
		l.Description, _ = domain.Describe(int(v.Value.Int64()))
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enc.Encode(l); err != nil {
		return fmt.Errorf("write %s: %w", v.Driver, err)
	}
	return nil
}
