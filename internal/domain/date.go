package domain

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"
)

// DateLayout is the only accepted input form for calendar dates.
const DateLayout = "2006-01-02"

// dateRe is the literal validation boundary: four digits, hyphen, two digits,
// hyphen, two digits. "2025-3-1" is rejected.
var dateRe = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// ParseDate validates s and returns it as a UTC midnight time.
// Strings that match the pattern but name no real day ("2025-02-30") are
// rejected as well.
func ParseDate(s string) (time.Time, error) {
	if !dateRe.MatchString(s) {
		return time.Time{}, fmt.Errorf("%w: %q is not YYYY-MM-DD", ErrInvalidDate, s)
	}
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q: %v", ErrInvalidDate, s, err)
	}
	return t, nil
}

// ParseDateRequest extracts the requested date from a source message. The
// value may be a JSON DateRequest or the bare date string.
func ParseDateRequest(raw RawMessage) (string, error) {
	value := strings.TrimSpace(string(raw.Value))
	if strings.HasPrefix(value, "{") {
		var req DateRequest
		if err := json.Unmarshal(raw.Value, &req); err != nil {
			return "", fmt.Errorf("parse date request: %w", err)
		}
		value = strings.TrimSpace(req.Date)
	}
	if _, err := ParseDate(value); err != nil {
		return "", fmt.Errorf("parse date request: %w", err)
	}
	return value, nil
}
