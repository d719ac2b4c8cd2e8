package domain

import "fmt"

// Permission is a named capability granted to an API key.
// The set is closed: only the constants below are valid.
type Permission string

const (
	// PermissionRead allows read-only analytics queries
	PermissionRead Permission = "read"
	// PermissionWrite allows event ingestion
	PermissionWrite Permission = "write"
	// PermissionAdmin allows user and key management
	PermissionAdmin Permission = "admin"
)

// Valid reports whether the permission is one of the known capabilities
func (p Permission) Valid() bool {
	switch p {
	case PermissionRead, PermissionWrite, PermissionAdmin:
		return true
	}
	return false
}

// PermissionSet is the collection of capabilities attached to an API key
type PermissionSet []Permission

// ParsePermissions validates a list of raw permission strings at the boundary
// and returns the typed set. Unknown capabilities are rejected.
func ParsePermissions(raw []string) (PermissionSet, error) {
	set := make(PermissionSet, 0, len(raw))
	seen := make(map[Permission]bool, len(raw))
	for _, r := range raw {
		p := Permission(r)
		if !p.Valid() {
			return nil, fmt.Errorf("unknown permission %q", r)
		}
		if seen[p] {
			continue
		}
		seen[p] = true
		set = append(set, p)
	}
	return set, nil
}

// Has reports whether the set contains the given capability
func (s PermissionSet) Has(p Permission) bool {
	for _, have := range s {
		if have == p {
			return true
		}
	}
	return false
}

// Strings returns the set as raw strings for storage and transport
func (s PermissionSet) Strings() []string {
	out := make([]string, len(s))
	for i, p := range s {
		out[i] = string(p)
	}
	return out
}
