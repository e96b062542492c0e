package api

import (
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"
)

// floatParam parses an optional finite float. ok is false when absent.
func floatParam(q url.Values, key string) (v float64, ok bool, err error) {
	raw := strings.TrimSpace(q.Get(key))
	if raw == "" {
		return 0, false, nil
	}
	v, err = strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false, fmt.Errorf("%s must be a finite number, got %q", key, raw)
	}
	return v, true, nil
}

// floatPtrParam is floatParam for optional bounds.
func floatPtrParam(q url.Values, key string) (*float64, error) {
	v, ok, err := floatParam(q, key)
	if err != nil || !ok {
		return nil, err
	}
	return &v, nil
}

func intParam(q url.Values, key string) (v int, ok bool, err error) {
	raw := strings.TrimSpace(q.Get(key))
	if raw == "" {
		return 0, false, nil
	}
	v, err = strconv.Atoi(raw)
	if err != nil {
		return 0, false, fmt.Errorf("%s must be an integer, got %q", key, raw)
	}
	return v, true, nil
}

func boolParam(q url.Values, key string) (v bool, ok bool, err error) {
	raw := strings.TrimSpace(q.Get(key))
	if raw == "" {
		return false, false, nil
	}
	v, err = strconv.ParseBool(raw)
	if err != nil {
		return false, false, fmt.Errorf("%s must be a boolean, got %q", key, raw)
	}
	return v, true, nil
}

// pathInt reads a numeric path value.
func pathInt(raw, name string) (int, error) {
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer, got %q", name, raw)
	}
	return v, nil
}
