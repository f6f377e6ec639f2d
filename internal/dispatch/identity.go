package dispatch

import (
	"errors"

	"github.com/roach88/shipbot/internal/urbit"
)

// Identity is the bridge's own ship. It is immutable after construction and
// shared read-only by every handler.
type Identity struct {
	ship urbit.Ship
}

// NewIdentity returns the identity for ship.
func NewIdentity(ship urbit.Ship) (Identity, error) {
	ship = ship.Normalize()
	if ship.IsZero() {
		return Identity{}, errors.New("bridge identity: empty ship name")
	}
	return Identity{ship: ship}, nil
}

// Ship returns the bridge ship.
func (i Identity) Ship() urbit.Ship {
	return i.ship
}

// IsSelf reports whether author is the bridge itself.
func (i Identity) IsSelf(author urbit.Ship) bool {
	return !i.ship.IsZero() && i.ship.Equal(author)
}
