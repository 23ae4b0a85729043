package security

import (
	"fmt"
	"math"
	"strings"
)

// Type identifies an authentication method
type Type int

const (
	TypeUndefined Type = -1 // no method selected yet
	TypePassword  Type = 1
	TypeBiometric Type = 2
)

// Types lists every known method, in display order
var Types = []Type{TypePassword, TypeBiometric}

// MethodName returns the display name of a method type.
// Adding a Type means adding it here and in newBackend.
func MethodName(t Type) (string, error) {
	switch t {
	case TypePassword:
		return "Password", nil
	case TypeBiometric:
		return "Fingerprint", nil
	default:
		return "", fmt.Errorf("could not find security type for %d", int(t))
	}
}

// MethodNames maps MethodName over types
func MethodNames(types []Type) ([]string, error) {
	names := make([]string, 0, len(types))
	for _, t := range types {
		name, err := MethodName(t)
		if err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, nil
}

// ParseType parses a method name or alias into a Type
func ParseType(s string) (Type, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "password", "pass":
		return TypePassword, nil
	case "biometric", "bio", "fingerprint":
		return TypeBiometric, nil
	default:
		return TypeUndefined, fmt.Errorf("unknown security method %q", s)
	}
}

func (t Type) String() string {
	if name, err := MethodName(t); err == nil {
		return name
	}
	return "Undefined"
}

// CompactTypeSet is a bitmask of allowed method types.
// The zero-argument default allows everything.
type CompactTypeSet int

// AllTypes allows every method
const AllTypes CompactTypeSet = math.MaxInt32

// NewCompactTypeSet builds a set allowing exactly the given types
func NewCompactTypeSet(allowed ...Type) CompactTypeSet {
	var s CompactTypeSet
	for _, t := range allowed {
		s |= CompactTypeSet(t)
	}
	return s
}

// IsAllowed reports whether t is in the set
func (s CompactTypeSet) IsAllowed(t Type) bool {
	return !s.IsForbidden(t)
}

// IsForbidden reports whether t is absent from the set
func (s CompactTypeSet) IsForbidden(t Type) bool {
	return int(s)&int(t) == 0
}

// Allowed returns the known types that are in the set
func (s CompactTypeSet) Allowed() []Type {
	var out []Type
	for _, t := range Types {
		if s.IsAllowed(t) {
			out = append(out, t)
		}
	}
	return out
}

// Forbidden returns the known types that are not in the set
func (s CompactTypeSet) Forbidden() []Type {
	var out []Type
	for _, t := range Types {
		if s.IsForbidden(t) {
			out = append(out, t)
		}
	}
	return out
}
