// Package serialize is the boundary between domain records and their flat
// storage row shape: it generates identifiers and timestamps, normalizes
// text fields (trim, empty → NULL), resolves historical field-name
// aliases once at decode time, and validates payloads before any write.
package serialize

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"tripvault/internal/common"
)

// timeLayout is RFC 3339 with fixed millisecond precision so timestamps
// stay lexicographically ordered in TEXT columns.
const timeLayout = "2006-01-02T15:04:05.000Z07:00"

// NewID returns a fresh opaque record identifier.
func NewID() string {
	return uuid.NewString()
}

// Now returns the current UTC time in the store's ISO-8601 layout.
func Now() string {
	return time.Now().UTC().Format(timeLayout)
}

// datePattern recognizes calendar-date strings (optionally with a time
// part). Such values are passed through unchanged to avoid a lossy
// date/timezone round trip through generic string normalization.
var datePattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}([T ].*)?$`)

// IsDateString reports whether s looks like a calendar date or datetime.
func IsDateString(s string) bool {
	return datePattern.MatchString(s)
}

// Clean normalizes a text field: calendar-date strings pass through
// unchanged, other values are trimmed, and empty results become nil
// (stored as NULL, never as "").
func Clean(s string) *string {
	if IsDateString(s) {
		return &s
	}
	t := strings.TrimSpace(s)
	if t == "" {
		return nil
	}
	return &t
}

// CleanPtr applies Clean to an optional field.
func CleanPtr(p *string) *string {
	if p == nil {
		return nil
	}
	return Clean(*p)
}

var validate = validator.New()

// Validate checks a payload's struct tags and wraps failures in
// common.ErrValidation so callers can match with errors.Is. The owner id
// is the usual offender.
func Validate(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var fields []string
	if verrs, ok := err.(validator.ValidationErrors); ok {
		for _, fe := range verrs {
			fields = append(fields, fmt.Sprintf("%s is %s", fe.Field(), fe.Tag()))
		}
		return fmt.Errorf("%w: %s", common.ErrValidation, strings.Join(fields, "; "))
	}
	return fmt.Errorf("%w: %v", common.ErrValidation, err)
}

// photoAliases are the historical source keys for a photo reference, in
// resolution order. Older exports used photoUri or photoPath; very old
// ones used imageUri.
var photoAliases = []string{"photoRef", "photoUri", "photoPath", "imageUri"}

// DecodeWithAliases unmarshals a JSON payload into v after rewriting
// known historical field aliases to their canonical names. Alias
// resolution happens exactly once, here; the rest of the store only ever
// sees the canonical field set.
func DecodeWithAliases(data []byte, v any) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decode payload: %w", err)
	}
	if _, ok := raw["photoRef"]; !ok {
		for _, alias := range photoAliases[1:] {
			if val, ok := raw[alias]; ok {
				raw["photoRef"] = val
				break
			}
		}
	}
	for _, alias := range photoAliases[1:] {
		delete(raw, alias)
	}
	canonical, err := json.Marshal(raw)
	if err != nil {
		return fmt.Errorf("decode payload: %w", err)
	}
	if err := json.Unmarshal(canonical, v); err != nil {
		return fmt.Errorf("decode payload: %w", err)
	}
	return nil
}

// MarshalStringSlice stores a string list as a JSON array TEXT column.
// nil and empty slices both encode to "[]".
func MarshalStringSlice(s []string) (string, error) {
	if len(s) == 0 {
		return "[]", nil
	}
	b, err := json.Marshal(s)
	if err != nil {
		return "", fmt.Errorf("encode list: %w", err)
	}
	return string(b), nil
}

// UnmarshalStringSlice reverses MarshalStringSlice. Empty and NULL
// columns decode to nil.
func UnmarshalStringSlice(s string) ([]string, error) {
	if s == "" || s == "[]" {
		return nil, nil
	}
	var out []string
	if err := json.Unmarshal([]byte(s), &out); err != nil {
		return nil, fmt.Errorf("decode list: %w", err)
	}
	return out, nil
}
