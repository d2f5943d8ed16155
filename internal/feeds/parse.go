package feeds

import (
	"ble-linepos/internal/models"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

var ErrMalformedLine = errors.New("malformed observation line")

// ParseLine decodes one line of scanner output. Accepted forms:
//
//	<address>,<rssi>
//	<address>,<rssi>,<unix_ms>
//	Address: <address>, RSSI: <rssi>
//
// Blank lines and lines starting with '#' yield (nil, nil). now stamps lines
// that carry no timestamp.
func ParseLine(line string, now time.Time) (*models.Observation, error) {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return nil, nil
	}

	fields := strings.Split(line, ",")
	if len(fields) < 2 || len(fields) > 3 {
		return nil, fmt.Errorf("%w: expected 2 or 3 fields, got %d in %q", ErrMalformedLine, len(fields), line)
	}

	address := stripLabel(fields[0], "address")
	if address == "" {
		return nil, fmt.Errorf("%w: empty address in %q", ErrMalformedLine, line)
	}

	rssi, err := strconv.Atoi(stripLabel(fields[1], "rssi"))
	if err != nil {
		return nil, fmt.Errorf("%w: rssi in %q: %v", ErrMalformedLine, line, err)
	}

	ts := now
	if len(fields) == 3 {
		ms, err := strconv.ParseInt(stripLabel(fields[2], "timestamp"), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: timestamp in %q: %v", ErrMalformedLine, line, err)
		}
		ts = time.UnixMilli(ms).UTC()
	}

	return &models.Observation{
		AnchorID:  models.NormalizeAnchorID(address),
		RSSI:      rssi,
		Timestamp: ts,
	}, nil
}

// stripLabel removes an optional "label:" prefix. Addresses contain colons
// themselves, so only a matching label is stripped.
func stripLabel(field, label string) string {
	field = strings.TrimSpace(field)
	key, value, ok := strings.Cut(field, ":")
	if ok && strings.EqualFold(strings.TrimSpace(key), label) {
		return strings.TrimSpace(value)
	}
	return field
}
