package resolver

import (
	"crypto/rand"
	"encoding/binary"
	"strings"
	"time"

	"github.com/google/uuid"
)

// builtin matches the path case-insensitively against the fixed table of
// zero-argument generators. Builtins need no execution context.
func builtin(path string) (any, bool) {
	now := time.Now().UTC()

	switch strings.ToLower(path) {
	case "date":
		return now.Format("2006-01-02"), true
	case "time":
		return now.Format("15:04:05"), true
	case "datetime":
		return now.Format(time.RFC3339), true
	case "timestamp":
		return now.Unix(), true
	case "random":
		return randomInt(), true
	case "uuid":
		return uuid.New().String(), true
	case "year":
		return now.Format("2006"), true
	case "month":
		return now.Format("01"), true
	case "day":
		return now.Format("02"), true
	case "weekday":
		return now.Weekday().String(), true
	}

	return nil, false
}

// timeValue handles the time/datetime namespace, where the second path
// segment selects a formatting mode.
func timeValue(mode string) (any, bool) {
	now := time.Now().UTC()

	switch mode {
	case "now", "iso":
		return now.Format(time.RFC3339), true
	case "today", "date":
		return now.Format("2006-01-02"), true
	case "time":
		return now.Format("15:04:05"), true
	case "unix", "timestamp":
		return now.Unix(), true
	case "year":
		return now.Format("2006"), true
	case "month":
		return now.Format("01"), true
	case "day":
		return now.Format("02"), true
	case "hour":
		return now.Format("15"), true
	case "minute":
		return now.Format("04"), true
	case "weekday":
		return now.Weekday().String(), true
	}

	return nil, false
}

// randomInt returns a non-negative random integer of up to six digits.
func randomInt() int {
	num := make([]byte, 4)
	if _, err := rand.Read(num); err != nil {
		return 0
	}

	return int(binary.BigEndian.Uint32(num) % 1000000)
}
