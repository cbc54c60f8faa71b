// Package collections has generic slice helpers.
package collections

// Apply maps each item in the input slice through applicator.
func Apply[T, V any](items []T, applicator func(T) V) []V {
	result := make([]V, len(items))
	for i, item := range items {
		result[i] = applicator(item)
	}
	return result
}

// ApplyVariadic is Apply over its trailing arguments.
func ApplyVariadic[T, V any](applicator func(T) V, items ...T) []V {
	return Apply(items, applicator)
}
