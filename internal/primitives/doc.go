// Package primitives provides the leaf data structures of the verifier:
// the fixture document (expected frames plus the value mapping) and the
// observed frame built from each display notification.
//
// Core invariants:
// - A Fixture returned by LoadFixture or ParseFixture is valid and must be
//   treated as immutable.
// - A Frame always has at least one cell; empty cell lists become [false].
//
// Only gopkg.in/yaml.v3 and golang.org/x/exp are used beyond the standard library.
package primitives
