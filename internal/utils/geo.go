package utils

import (
	"math"
	"strconv"
	"strings"
)

const (
	MaxLatitude  = 90.0
	MaxLongitude = 180.0
)

// ParseCoordinate parses raw and checks it lies within ±limit. Anything
// unparsable or out of range yields nil. Valid values keep 8 decimals.
func ParseCoordinate(raw string, limit float64) *float64 {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(value) || math.IsInf(value, 0) {
		return nil
	}
	if value < -limit || value > limit {
		return nil
	}
	rounded := math.Round(value*1e8) / 1e8
	return &rounded
}
