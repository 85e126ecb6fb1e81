// Package fs abstracts the filesystem calls made by blobstore.LocalStore so
// tests can inject I/O failures while a segment is being written.
//
//   - [LocalFS] forwards to the os package and is the default.
//   - [FaultyFS] wraps another FileSystem and fails writes, syncs or
//     closes of matching files.
//
// The interfaces carry no context.Context: local file calls cannot be
// interrupted at the syscall level. Remote stores implement blobstore.Blob,
// which does take a context.
package fs
