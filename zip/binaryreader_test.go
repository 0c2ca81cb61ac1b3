package zip

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeTempFile(t *testing.T, data []byte) *os.File {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scan.bin")
	require.NoError(t, os.WriteFile(path, data, 0o644))
	f, err := os.Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { f.Close() })
	return f
}

func TestScanForSignatureFindsRightmostMatch(t *testing.T) {
	var sigBytes [4]byte
	sigBytes[0], sigBytes[1], sigBytes[2], sigBytes[3] = 0x50, 0x4b, 0x05, 0x06

	data := make([]byte, 100)
	copy(data[10:], sigBytes[:])
	copy(data[80:], sigBytes[:])

	f := writeTempFile(t, data)
	pos, err := scanForSignature(f, eocdSignature, int64(len(data)), int64(len(data)))
	require.NoError(t, err)
	require.EqualValues(t, 80, pos)
}

func TestScanForSignatureAcrossChunkBoundary(t *testing.T) {
	// Place the signature so that it straddles the boundary between the
	// first (tail) chunk and the second chunk: only the 3-byte overlap
	// lets the second read see the whole thing.
	data := make([]byte, pageSize*2)
	var sigBytes [4]byte
	sigBytes[0], sigBytes[1], sigBytes[2], sigBytes[3] = 0x50, 0x4b, 0x05, 0x06
	straddle := pageSize - 2
	copy(data[straddle:], sigBytes[:])

	f := writeTempFile(t, data)
	pos, err := scanForSignature(f, eocdSignature, int64(len(data)), int64(len(data)))
	require.NoError(t, err)
	require.EqualValues(t, straddle, pos)
}

func TestScanForSignatureNotFound(t *testing.T) {
	data := make([]byte, 100)
	f := writeTempFile(t, data)
	_, err := scanForSignature(f, eocdSignature, int64(len(data)), int64(len(data)))
	require.ErrorIs(t, err, errSignatureNotFound)
}

func TestScanForSignatureRespectsMaxScan(t *testing.T) {
	var sigBytes [4]byte
	sigBytes[0], sigBytes[1], sigBytes[2], sigBytes[3] = 0x50, 0x4b, 0x05, 0x06

	data := make([]byte, 1000)
	copy(data[0:], sigBytes[:]) // only near the very start

	f := writeTempFile(t, data)
	_, err := scanForSignature(f, eocdSignature, int64(len(data)), 100)
	require.ErrorIs(t, err, errSignatureNotFound)
}
