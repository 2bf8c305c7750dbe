package model

import "encoding/json"

// Scalar widens Go numeric types to float64 so values built in code compare
// equal to values decoded from JSON.
func Scalar(v any) any {
	switch n := v.(type) {
	case int:
		return float64(n)
	case int32:
		return float64(n)
	case int64:
		return float64(n)
	case float32:
		return float64(n)
	case json.Number:
		f, err := n.Float64()
		if err != nil {
			return n.String()
		}
		return f
	}
	return v
}

// Truthy reports whether a loosely typed flag from the learning app is set.
// Zero, the empty string, false and null are unset; anything else is set.
func Truthy(v any) bool {
	switch t := Scalar(v).(type) {
	case nil:
		return false
	case bool:
		return t
	case float64:
		return t != 0
	case string:
		return t != ""
	}
	return true
}
