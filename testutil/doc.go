// Package testutil provides testing utilities for termdict.
//
// This package is intended for use in tests and benchmarks only.
// It provides a deterministic RNG and generators for sorted key sets with
// realistic shapes (shared prefixes, skewed document frequencies).
//
// # Random Keys
//
//	rng := testutil.NewRNG(seed)
//	keys := rng.SortedKeys(1000, 1, 12, testutil.Lowercase)
//
// # Prefix-Heavy Keys
//
// Block-tree tests need many keys under one prefix to force floor blocks:
//
//	keys := rng.PrefixedKeys([]string{"app", "b"}, 200, 4)
package testutil
