package urbit

import (
	"fmt"
	"strings"
)

// Resource names a joinable conversation or group: a host ship plus a name.
//
// Resource is a comparable value and is safe to use as a map key.
type Resource struct {
	Ship Ship   `json:"ship"`
	Name string `json:"name"`
}

// NewResource builds a Resource from a ship name (sigil optional) and a name.
func NewResource(ship, name string) (Resource, error) {
	s, err := ParseShip(ship)
	if err != nil {
		return Resource{}, err
	}
	if strings.TrimSpace(name) == "" {
		return Resource{}, fmt.Errorf("empty resource name for ship %s", s)
	}
	return Resource{Ship: s, Name: name}, nil
}

// ParseResourcePath parses the metadata-store path form "/ship/~host/name".
func ParseResourcePath(path string) (Resource, error) {
	parts := strings.Split(path, "/")
	// "", "ship", "~host", "name"
	if len(parts) != 4 || parts[0] != "" || parts[1] != "ship" {
		return Resource{}, fmt.Errorf("invalid resource path %q", path)
	}
	if !strings.HasPrefix(parts[2], "~") {
		return Resource{}, fmt.Errorf("invalid resource path %q: host must start with ~", path)
	}
	r, err := NewResource(parts[2], parts[3])
	if err != nil {
		return Resource{}, fmt.Errorf("invalid resource path %q: %w", path, err)
	}
	return r, nil
}

// Path renders the resource in metadata-store path form.
func (r Resource) Path() string {
	return "/ship/" + r.Ship.String() + "/" + r.Name
}

// String renders the resource as "~host/name".
func (r Resource) String() string {
	return r.Ship.String() + "/" + r.Name
}

// IsZero reports whether the resource is unset.
func (r Resource) IsZero() bool {
	return r.Ship.IsZero() && r.Name == ""
}
