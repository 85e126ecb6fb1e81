// Package encoding provides the varint append/read primitives shared by the
// FST and block-tree formats.
//
// Writers append into caller-owned byte slices (AppendUvarint, AppendBytes);
// readers walk an immutable byte slice with a Reader cursor. Every read that
// runs past the end of the slice returns ErrShortBuffer or ErrOverflow so that
// corrupt inputs surface as errors instead of panics.
package encoding
