package engine

import (
	"slices"

	"github.com/DoyleJ11/housie-backend/internal/claim"
)

// Rules is per-room game configuration.
type Rules struct {
	// MultipleWinners lets a claim type be accepted once per player instead
	// of once per room.
	MultipleWinners bool
	ClaimTypes      []claim.Type
}

func DefaultRules() Rules {
	return Rules{ClaimTypes: slices.Clone(claim.DefaultTypes)}
}

func (r Rules) claimTypes() []claim.Type {
	if len(r.ClaimTypes) == 0 {
		return claim.DefaultTypes
	}
	return r.ClaimTypes
}

// Offers reports whether typ can be claimed under r.
func (r Rules) Offers(typ claim.Type) bool {
	return slices.Contains(r.claimTypes(), typ)
}
