// Package conv holds checked integer conversions for values read from or
// written to segment files, where a silent truncation would corrupt offsets.
//
// Conversions that are bounded by construction use plain casts instead.
package conv
