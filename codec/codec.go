// Package codec encodes the metadata section of a segment file.
//
// The metadata section holds the segment id, the creation time and, per
// field, the block-tree metadata: term counts, min and max terms, the root
// block code and the offsets of the terms index and postings. Segment headers
// record the codec name, so a reader decodes metadata with the codec the
// writer used. Changing the default only affects new segments.
package codec

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
)

// MaxNameLen is the longest codec name a segment header can record.
const MaxNameLen = 0xFF

// ErrUnknown is returned by Lookup for a name that is not built in.
var ErrUnknown = errors.New("codec: unknown codec")

// Codec encodes/decodes segment metadata.
// Implementations must be safe for concurrent use.
type Codec interface {
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
	// Name is recorded in the segment header and must be stable.
	Name() string
}

var builtins = map[string]Codec{
	JSON{}.Name():   JSON{},
	GoJSON{}.Name(): GoJSON{},
}

// Lookup returns the built-in codec a segment header names.
func Lookup(name string) (Codec, error) {
	if c, ok := builtins[name]; ok {
		return c, nil
	}
	return nil, fmt.Errorf("%w %q (built in: %s)", ErrUnknown, name, strings.Join(Names(), ", "))
}

// Names returns the built-in codec names in sorted order.
func Names() []string {
	return slices.Sorted(maps.Keys(builtins))
}

// ValidName reports whether name fits in a segment header.
func ValidName(name string) bool {
	return name != "" && len(name) <= MaxNameLen
}
