package domain

import (
	"bytes"
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"
)

// Driver ids understood by the host. Values and UOM codes are fixed by the
// node profile and must not be renumbered.
const (
	DriverStatus             = "ST"
	DriverTemperature        = "CLITEMP"
	DriverHumidity           = "CLIHUM"
	DriverPressure           = "BARPRES"
	DriverWindDirection      = "WINDDIR"
	DriverLuminance          = "LUMIN"
	DriverDewPoint           = "DEWPT"
	DriverMaxTemp            = "GV0"
	DriverMinTemp            = "GV1"
	DriverFeelsLike          = "GV2"
	DriverAvgTemp            = "GV3"
	DriverWindSpeed          = "GV4"
	DriverGustSpeed          = "GV5"
	DriverRain               = "GV6"
	DriverEvapotranspiration = "GV7"
	DriverIrrigation         = "GV8"
	DriverWaterDeficit       = "GV9"
	DriverElevation          = "GV10"
	DriverClimateCoverage    = "GV11"
	DriverClimateIntensity   = "GV12"
	DriverConditions         = "GV13"
	DriverClouds             = "GV14"
)

// Unit-of-measure codes used by the schema.
const (
	UOMBoolean    = 2
	UOMCelsius    = 4
	UOMPercent    = 22
	UOMIndex      = 25
	UOMLux        = 36
	UOMSpeed      = 48
	UOMDegrees    = 76
	UOMMillimeter = 82
	UOMHPa        = 117
)

// DriverSpec is one entry of the node's driver schema.
type DriverSpec struct {
	Driver      string `json:"driver"`
	UOM         int    `json:"uom"`
	Description string `json:"description"`
}

var schema = []DriverSpec{
	{DriverStatus, UOMBoolean, "node server status"},
	{DriverTemperature, UOMCelsius, "temperature"},
	{DriverHumidity, UOMPercent, "humidity"},
	{DriverPressure, UOMHPa, "pressure"},
	{DriverWindDirection, UOMDegrees, "wind direction"},
	{DriverLuminance, UOMLux, "luminance"},
	{DriverDewPoint, UOMCelsius, "dew point"},
	{DriverMaxTemp, UOMCelsius, "max temp"},
	{DriverMinTemp, UOMCelsius, "min temp"},
	{DriverFeelsLike, UOMCelsius, "feels like"},
	{DriverAvgTemp, UOMCelsius, "average temp"},
	{DriverWindSpeed, UOMSpeed, "wind speed"},
	{DriverGustSpeed, UOMSpeed, "gust speed"},
	{DriverRain, UOMIndex, "rain"},
	{DriverEvapotranspiration, UOMMillimeter, "evapotranspiration"},
	{DriverIrrigation, UOMMillimeter, "irrigation requirement"},
	{DriverWaterDeficit, UOMMillimeter, "water deficit"},
	{DriverElevation, UOMIndex, "elevation"},
	{DriverClimateCoverage, UOMIndex, "climate coverage"},
	{DriverClimateIntensity, UOMIndex, "climate intensity"},
	{DriverConditions, UOMIndex, "climate conditions"},
	{DriverClouds, UOMIndex, "cloud conditions"},
}

// Schema returns the node's driver list in declaration order.
func Schema() []DriverSpec {
	return slices.Clone(schema)
}

// LookupDriver returns the schema entry for id.
func LookupDriver(id string) (DriverSpec, bool) {
	for _, d := range schema {
		if d.Driver == id {
			return d, true
		}
	}
	return DriverSpec{}, false
}

// Value is a driver reading. Integral values (condition codes, status) format
// without a decimal point; float values always carry one, so "26.0" and "26"
// stay distinguishable on the wire.
type Value struct {
	f        float64
	integral bool
}

func Float(f float64) Value { return Value{f: f} }

func Int(i int64) Value { return Value{f: float64(i), integral: true} }

func (v Value) Float64() float64 { return v.f }

func (v Value) Int64() int64 { return int64(v.f) }

func (v Value) IsIntegral() bool { return v.integral }

func (v Value) String() string {
	if v.integral {
		return strconv.FormatInt(int64(v.f), 10)
	}
	s := strconv.FormatFloat(v.f, 'f', -1, 64)
	if !strings.ContainsAny(s, ".eEIN") {
		s += ".0"
	}
	return s
}

func (v Value) MarshalJSON() ([]byte, error) {
	if math.IsNaN(v.f) || math.IsInf(v.f, 0) {
		return nil, fmt.Errorf("value %v is not finite", v.f)
	}
	return []byte(v.String()), nil
}

func (v *Value) UnmarshalJSON(data []byte) error {
	s := string(bytes.Trim(bytes.TrimSpace(data), `"`))
	if !strings.ContainsAny(s, ".eE") {
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return fmt.Errorf("parse driver value %q: %w", s, err)
		}
		*v = Int(n)
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("parse driver value %q: %w", s, err)
	}
	*v = Float(f)
	return nil
}

// DriverValue is a single reading ready to hand to a sink.
type DriverValue struct {
	Driver string `json:"driver"`
	Value  Value  `json:"value"`
	UOM    int    `json:"uom"`
	Report bool   `json:"report"`
	Force  bool   `json:"force"`
}

// NewDriverValue builds a reported, forced value with the schema's UOM.
func NewDriverValue(driver string, v Value) DriverValue {
	spec, _ := LookupDriver(driver)
	return DriverValue{
		Driver: driver,
		Value:  v,
		UOM:    spec.UOM,
		Report: true,
		Force:  true,
	}
}
