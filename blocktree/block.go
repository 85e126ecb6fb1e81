package blocktree

import (
	"encoding/binary"

	"github.com/hupe1980/termdict/internal/encoding"
	"github.com/hupe1980/termdict/internal/hash"
)

// Index output code: fp<<2 | hasTerms<<1 | isFloor.
const (
	outputFlagIsFloor  = 0x1
	outputFlagHasTerms = 0x2
	outputFlagsNumBits = 2
)

// Suffix section header: rawLen<<3 | isLeaf<<2 | codec.
const (
	suffixCodecMask = 0x3
	suffixLeafFlag  = 0x4
	suffixLenShift  = 3
)

const checksumSize = 4

func encodeOutput(fp int64, hasTerms, isFloor bool) uint64 {
	code := uint64(fp) << outputFlagsNumBits
	if hasTerms {
		code |= outputFlagHasTerms
	}
	if isFloor {
		code |= outputFlagIsFloor
	}
	return code
}

// appendFramedBlock appends body framed with its length and checksum.
func appendFramedBlock(dst, body []byte) []byte {
	dst = encoding.AppendUvarint(dst, uint64(len(body)))
	dst = append(dst, body...)
	return encoding.AppendUint32(dst, hash.CRC32C(body))
}

// framedLen is the on-disk size of a block with a body of n bytes.
func framedLen(n int) int64 {
	return int64(encoding.UvarintLen(uint64(n)) + n + checksumSize)
}

// parseFramedBlock verifies the block starting at data[0] (file pointer fp)
// and returns its body. data may extend past the end of the block.
func parseFramedBlock(data []byte, fp int64) ([]byte, error) {
	bodyLen, n := binary.Uvarint(data)
	if n <= 0 {
		return nil, corruptf("block at %d: bad length header", fp)
	}
	if bodyLen > uint64(len(data)-n) || uint64(len(data)-n)-bodyLen < checksumSize {
		return nil, corruptf("block at %d: length %d exceeds available %d bytes", fp, bodyLen, len(data)-n)
	}
	body := data[n : n+int(bodyLen)]
	stored := binary.LittleEndian.Uint32(data[n+int(bodyLen):])
	if computed := hash.CRC32C(body); computed != stored {
		return nil, &ChecksumMismatchError{FP: fp, Stored: stored, Computed: computed}
	}
	return body, nil
}
