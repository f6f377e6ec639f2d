package urbit

import (
	"fmt"
	"strings"
)

// Ship is a ship name without the leading "~" (e.g. "zod", "sampel-palnet").
//
// Ship names arrive from the peer both with and without the sigil, so every
// constructor strips it. String renders it back.
type Ship string

// ParseShip normalizes a ship name, accepting an optional leading "~".
//
// Returns an error for empty names and names containing whitespace or "/".
func ParseShip(s string) (Ship, error) {
	name := strings.TrimPrefix(strings.TrimSpace(s), "~")
	if name == "" {
		return "", fmt.Errorf("empty ship name %q", s)
	}
	if strings.ContainsAny(name, " \t\r\n/~") {
		return "", fmt.Errorf("invalid ship name %q", s)
	}
	return Ship(name), nil
}

// MustParseShip is ParseShip for constants and tests. Panics on error.
func MustParseShip(s string) Ship {
	ship, err := ParseShip(s)
	if err != nil {
		panic(err)
	}
	return ship
}

// Normalize strips a leading "~" if one slipped in through a raw conversion.
func (s Ship) Normalize() Ship {
	return Ship(strings.TrimPrefix(string(s), "~"))
}

// Name returns the ship name without the sigil.
func (s Ship) Name() string {
	return string(s.Normalize())
}

// String returns the ship name with the "~" sigil.
func (s Ship) String() string {
	if s == "" {
		return ""
	}
	return "~" + s.Name()
}

// Equal compares two ships ignoring the sigil.
func (s Ship) Equal(other Ship) bool {
	return s.Normalize() == other.Normalize()
}

// IsZero reports whether the ship name is empty.
func (s Ship) IsZero() bool {
	return s.Normalize() == ""
}

// MarshalText renders the ship with its sigil.
func (s Ship) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText accepts names with or without the sigil.
func (s *Ship) UnmarshalText(b []byte) error {
	ship, err := ParseShip(string(b))
	if err != nil {
		return err
	}
	*s = ship
	return nil
}
