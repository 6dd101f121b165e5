package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// EnvString returns the value of an environment variable and whether it is set.
func EnvString(key string) (string, bool) {
	value, ok := os.LookupEnv(key)
	return value, ok
}

// EnvInt parses an integer environment variable.
// The second return value reports whether the variable is set.
func EnvInt(key string) (int, bool, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return 0, false, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, true, fmt.Errorf("parse %s: %w", key, err)
	}
	return value, true, nil
}

// EnvDuration parses a duration environment variable in Go duration syntax.
func EnvDuration(key string) (time.Duration, bool, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return 0, false, nil
	}
	value, err := time.ParseDuration(raw)
	if err != nil {
		return 0, true, fmt.Errorf("parse %s: %w", key, err)
	}
	return value, true, nil
}
