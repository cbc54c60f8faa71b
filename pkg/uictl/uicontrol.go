// Package uictl holds small read-only controls that let UI components
// observe values owned elsewhere.
package uictl

import "golang.org/x/exp/constraints"

type Number interface {
	constraints.Integer | constraints.Float
}

// Levels is a control that can read multiple sample levels.
type Levels[N Number] interface {
	Read() []N
}
