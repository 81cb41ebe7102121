// Package analytics computes the fill metrics, chain recommendation, and
// common quantity views over reconciled claim sets.
//
// Every function here reads its inputs without modifying them and returns a
// freshly allocated result sorted by its grouping key, so results are
// byte-stable across runs on the same input.
package analytics

// Default ranking depths.
const (
	DefaultTopChains     = 2
	DefaultTopQuantities = 5
)
