package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSchema(t *testing.T) {
	s := Schema()
	require.Len(t, s, 22)
	assert.Equal(t, DriverSpec{Driver: "ST", UOM: 2, Description: "node server status"}, s[0])

	want := map[string]int{
		"ST": 2, "CLITEMP": 4, "CLIHUM": 22, "BARPRES": 117, "WINDDIR": 76,
		"LUMIN": 36, "DEWPT": 4, "GV0": 4, "GV1": 4, "GV2": 4, "GV3": 4,
		"GV4": 48, "GV5": 48, "GV6": 25, "GV7": 82, "GV8": 82, "GV9": 82,
		"GV10": 25, "GV11": 25, "GV12": 25, "GV13": 25, "GV14": 25,
	}
	for _, d := range s {
		assert.Equal(t, want[d.Driver], d.UOM, d.Driver)
	}

	s[0].UOM = 99
	assert.Equal(t, 2, Schema()[0].UOM, "Schema must return a copy")
}

func TestLookupDriver(t *testing.T) {
	d, ok := LookupDriver("GV13")
	require.True(t, ok)
	assert.Equal(t, "climate conditions", d.Description)

	_, ok = LookupDriver("GV99")
	assert.False(t, ok)
}

func TestValue(t *testing.T) {
	assert.Equal(t, "26.0", Float(26).String())
	assert.Equal(t, "22.03", Float(22.03).String())
	assert.Equal(t, "-3.5", Float(-3.5).String())
	assert.Equal(t, "800", Int(800).String())
	assert.False(t, Float(1).IsIntegral())
	assert.True(t, Int(1).IsIntegral())

	t.Run("JSON keeps integral flag", func(t *testing.T) {
		data, err := json.Marshal(struct {
			A Value `json:"a"`
			B Value `json:"b"`
		}{Float(26), Int(800)})
		require.NoError(t, err)
		assert.JSONEq(t, `{"a":26.0,"b":800}`, string(data))

		var back struct {
			A Value `json:"a"`
			B Value `json:"b"`
		}
		require.NoError(t, json.Unmarshal(data, &back))
		assert.Equal(t, Float(26), back.A)
		assert.Equal(t, Int(800), back.B)
	})
}

func TestNewDriverValue(t *testing.T) {
	dv := NewDriverValue(DriverPressure, Float(1020))
	assert.Equal(t, 117, dv.UOM)
	assert.True(t, dv.Report)
	assert.True(t, dv.Force)
}
