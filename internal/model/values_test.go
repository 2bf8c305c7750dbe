package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTruthy(t *testing.T) {
	tests := []struct {
		v    any
		want bool
	}{
		{nil, false},
		{true, true},
		{false, false},
		{float64(1), true},
		{0, false},
		{int64(2), true},
		{json.Number("0"), false},
		{"true", true},
		{"false", true},
		{"", false},
		{[]any{}, true},
		{map[string]any{}, true},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Truthy(tt.v), "Truthy(%#v)", tt.v)
	}
}

func TestScalar(t *testing.T) {
	assert.Equal(t, float64(3), Scalar(3))
	assert.Equal(t, float64(1.5), Scalar(float32(1.5)))
	assert.Equal(t, float64(12), Scalar(json.Number("12")))
	assert.Equal(t, "abc", Scalar(json.Number("abc")))
	assert.Equal(t, "x", Scalar("x"))
}

func TestEventTypeKnown(t *testing.T) {
	for _, et := range AllEventTypes() {
		assert.True(t, et.Known(), "%s", et)
	}
	assert.False(t, EventType("custom_x").Known())
	assert.False(t, EventType("").Known())
}
