package domain

import (
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDescribe(t *testing.T) {
	tests := []struct {
		code int
		want string
	}{
		{200, "thunderstorm with light rain"},
		{311, "drizzle rain"},
		{511, "freezing rain"},
		{615, "light rain and snow"},
		{731, "sand, dust whirls"},
		{800, "clear sky"},
		{804, "overcast clouds"},
	}
	for _, tt := range tests {
		got, ok := Describe(tt.code)
		assert.True(t, ok, tt.code)
		assert.Equal(t, tt.want, got)
	}

	_, ok := Describe(999)
	assert.False(t, ok)
	_, ok = Describe(0)
	assert.False(t, ok)
}

func TestConditionCodes(t *testing.T) {
	codes := ConditionCodes()
	assert.Len(t, codes, 53)
	assert.True(t, slices.IsSorted(codes))
	assert.Equal(t, 200, codes[0])
	assert.Equal(t, 804, codes[len(codes)-1])
}
