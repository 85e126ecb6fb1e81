// Package hash provides the checksum used by every on-disk structure in
// termdict: CRC32-Castagnoli (CRC32C).
//
// CRC32C is hardware accelerated on x86 (SSE4.2) and ARM (CRC extension) and
// detects all single-bit, double-bit and odd-bit errors plus bursts up to 32
// bits. It is not a cryptographic hash; it only detects accidental
// corruption.
//
// For one-shot checksums:
//
//	checksum := hash.CRC32C(data)
//
// For streamed output, wrap the destination:
//
//	cw := hash.NewChecksumWriter(w)
//	_, _ = cw.Write(chunk)
//	sum, written := cw.Sum(), cw.Count()
package hash
