// internal/pkg/producttype/producttype.go

// Package producttype defines the catalog product families shared by the
// backend and the storefront client.
package producttype

import (
	"fmt"
	"strings"
)

// Type is the product family. A product is identified by (id, Type).
type Type string

const (
	Fruit       Type = "fruit"
	Pack        Type = "pack"
	Bowl        Type = "bowl"
	Refreshment Type = "refreshment"
)

// All lists every known type in display order
var All = []Type{Fruit, Pack, Bowl, Refreshment}

// Valid reports whether t is a known type
func (t Type) Valid() bool {
	switch t {
	case Fruit, Pack, Bowl, Refreshment:
		return true
	}
	return false
}

func (t Type) String() string {
	return string(t)
}

// Parse normalizes and validates a type name
func Parse(s string) (Type, error) {
	t := Type(strings.ToLower(strings.TrimSpace(s)))
	if !t.Valid() {
		return "", fmt.Errorf("unknown product type %q", s)
	}
	return t, nil
}

// InferFromID guesses the type of a legacy line that was stored without one.
// Refreshment ids start at 201 and bowl ids at 101; below that a subscription
// flag means a pack.
func InferFromID(id int, isSubscription bool) Type {
	switch {
	case id >= 201:
		return Refreshment
	case id >= 101:
		return Bowl
	case isSubscription:
		return Pack
	default:
		return Fruit
	}
}
