// Package ranking scores affiliate offers and picks which ones to promote.
//
// Everything here is pure computation over caller-supplied offers: no I/O,
// no shared mutable state. A Scorer or Selector can be shared freely between
// goroutines. Persisting scores is the caller's job (see ScoredOffer.Commit).
package ranking
