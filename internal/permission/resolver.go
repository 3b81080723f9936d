// Package permission computes effective capability sets. Resolution is a
// pure union of role capabilities and per-actor overrides; overrides are
// strictly additive, there is no mechanism to subtract a role-granted
// capability for an individual actor.
package permission

import (
	"sort"

	"github.com/spec-kit/workflow-service/internal/domain"
)

// CapabilitySet is an actor's effective capabilities.
type CapabilitySet map[string]struct{}

// Has is a pure membership check.
func (s CapabilitySet) Has(capability string) bool {
	_, ok := s[capability]
	return ok
}

// Keys returns the capabilities in sorted order.
func (s CapabilitySet) Keys() []string {
	keys := make([]string, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Resolve returns the union of the role's capabilities and the actor's
// overrides.
func Resolve(role *domain.Role, actor *domain.Actor) CapabilitySet {
	set := make(CapabilitySet, len(role.Capabilities)+len(actor.Overrides))
	for _, c := range role.Capabilities {
		set[c] = struct{}{}
	}
	for _, c := range actor.Overrides {
		set[c] = struct{}{}
	}
	return set
}
