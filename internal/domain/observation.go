package domain

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

var errFieldAbsent = errors.New("field absent")

// Field holds the raw JSON token of a single observation value. It records
// presence so that a missing value and a zero value stay distinguishable.
type Field struct {
	raw json.RawMessage
}

// FieldOf builds a Field from any JSON-encodable value. Mostly useful in tests.
func FieldOf(v any) Field {
	b, err := json.Marshal(v)
	if err != nil {
		return Field{}
	}
	return Field{raw: b}
}

func (f *Field) UnmarshalJSON(data []byte) error {
	f.raw = append(f.raw[:0], data...)
	return nil
}

func (f Field) MarshalJSON() ([]byte, error) {
	if !f.Present() {
		return []byte("null"), nil
	}
	return f.raw, nil
}

// Present reports whether the value was supplied. JSON null counts as absent.
func (f Field) Present() bool {
	trimmed := bytes.TrimSpace(f.raw)
	return len(trimmed) > 0 && !bytes.Equal(trimmed, []byte("null"))
}

// Raw returns the JSON token as received.
func (f Field) Raw() string {
	return string(f.raw)
}

// Float64 coerces the value to a finite float. JSON numbers and numeric
// strings are accepted.
func (f Field) Float64() (float64, error) {
	v, err := f.scalar()
	if err != nil {
		return 0, err
	}

	var out float64
	switch t := v.(type) {
	case json.Number:
		out, err = t.Float64()
	case string:
		out, err = strconv.ParseFloat(strings.TrimSpace(t), 64)
	default:
		return 0, fmt.Errorf("not a number: %s", f.raw)
	}
	if err != nil {
		return 0, err
	}
	if math.IsNaN(out) || math.IsInf(out, 0) {
		return 0, fmt.Errorf("not a finite number: %s", f.raw)
	}
	return out, nil
}

// Int64 coerces the value to an integer. Floats with a fractional part are
// rejected; 800.0 is accepted as 800.
func (f Field) Int64() (int64, error) {
	v, err := f.scalar()
	if err != nil {
		return 0, err
	}

	var s string
	switch t := v.(type) {
	case json.Number:
		s = t.String()
	case string:
		s = strings.TrimSpace(t)
	default:
		return 0, fmt.Errorf("not an integer: %s", f.raw)
	}

	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n, nil
	}
	fl, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if fl != math.Trunc(fl) || math.IsInf(fl, 0) || math.Abs(fl) > math.MaxInt64 {
		return 0, fmt.Errorf("not an integer: %s", f.raw)
	}
	return int64(fl), nil
}

func (f Field) scalar() (any, error) {
	if !f.Present() {
		return nil, errFieldAbsent
	}
	dec := json.NewDecoder(bytes.NewReader(f.raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	return v, nil
}

// Observation is one decoded current-weather response. Every group is
// optional; use the *Present helpers rather than nil checks so that empty
// groups are handled consistently.
type Observation struct {
	Main    *MainGroup       `json:"main,omitempty"`
	Wind    *WindGroup       `json:"wind,omitempty"`
	Rain    RainGroup        `json:"rain,omitempty"`
	Clouds  *CloudsGroup     `json:"clouds,omitempty"`
	Weather []ConditionEntry `json:"weather,omitempty"`

	Name       string `json:"name,omitempty"`
	Dt         Field  `json:"dt"`
	Visibility Field  `json:"visibility"`
}

type MainGroup struct {
	Temp     Field `json:"temp"`
	Humidity Field `json:"humidity"`
	Pressure Field `json:"pressure"`
	TempMin  Field `json:"temp_min"`
	TempMax  Field `json:"temp_max"`
}

type WindGroup struct {
	Speed Field `json:"speed"`
	Deg   Field `json:"deg"`
}

// RainGroup maps an accumulation window ("1h", "3h") to a precipitation amount.
type RainGroup map[string]Field

type CloudsGroup struct {
	All Field `json:"all"`
}

// ConditionEntry is one element of the "weather" array.
type ConditionEntry struct {
	ID          Field  `json:"id"`
	Main        string `json:"main,omitempty"`
	Description string `json:"description,omitempty"`
	Icon        string `json:"icon,omitempty"`
}

// MainPresent reports whether the main group carries any field we read.
func (o Observation) MainPresent() bool {
	m := o.Main
	return m != nil && (m.Temp.Present() || m.Humidity.Present() || m.Pressure.Present() ||
		m.TempMin.Present() || m.TempMax.Present())
}

func (o Observation) WindPresent() bool {
	return o.Wind != nil && (o.Wind.Speed.Present() || o.Wind.Deg.Present())
}

func (o Observation) RainPresent() bool {
	for _, f := range o.Rain {
		if f.Present() {
			return true
		}
	}
	return false
}

func (o Observation) CloudsPresent() bool {
	return o.Clouds != nil && o.Clouds.All.Present()
}

func (o Observation) WeatherPresent() bool {
	return len(o.Weather) > 0
}

// ObservedAt returns the provider's observation time, if it was reported.
func (o Observation) ObservedAt() (time.Time, bool) {
	secs, err := o.Dt.Int64()
	if err != nil || secs <= 0 {
		return time.Time{}, false
	}
	return time.Unix(secs, 0).UTC(), true
}

// DecodeObservation parses a current-weather response body.
func DecodeObservation(data []byte) (Observation, error) {
	var obs Observation
	if err := json.Unmarshal(data, &obs); err != nil {
		return Observation{}, fmt.Errorf("decode observation: %w", err)
	}
	return obs, nil
}

// Query selects what the weather provider is asked for.
type Query struct {
	Location string `json:"location" validate:"required"`
	Units    string `json:"units" validate:"required,oneof=metric imperial standard"`
	APIKey   string `json:"-" validate:"required"`
}
