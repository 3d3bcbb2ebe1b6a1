package buildcache

import (
	"encoding/hex"
	"fmt"
	"io"
	"os"

	"github.com/zeebo/blake3"
)

// Hash is a 32-byte BLAKE3 digest.
type Hash [32]byte

func (h Hash) String() string {
	return hex.EncodeToString(h[:])
}

// IsZero reports whether h is the zero hash.
func (h Hash) IsZero() bool {
	return h == Hash{}
}

type domainKey [32]byte

// Domain keys keep file and value hashes from colliding. Changing them
// invalidates every stored record.
var (
	fileDomainKey = domainKey{
		'c', 'o', 'n', 't', 'e', 'n', 't', 'g', 'r', 'i', 'd', '.', 'f', 'i', 'l', 'e',
	}
	valueDomainKey = domainKey{
		'c', 'o', 'n', 't', 'e', 'n', 't', 'g', 'r', 'i', 'd', '.', 'v', 'a', 'l', 'u', 'e',
	}
)

func newHasher(key domainKey) *blake3.Hasher {
	h, err := blake3.NewKeyed(key[:])
	if err != nil {
		panic("buildcache: BLAKE3 keyed hash initialization failed: " + err.Error())
	}
	return h
}

func sum(h *blake3.Hasher) Hash {
	var out Hash
	copy(out[:], h.Sum(nil))
	return out
}

// HashFile returns the file-domain hash of the file at path.
func HashFile(path string) (Hash, error) {
	f, err := os.Open(path)
	if err != nil {
		return Hash{}, err
	}
	defer f.Close()

	h := newHasher(fileDomainKey)
	if _, err := io.Copy(h, f); err != nil {
		return Hash{}, fmt.Errorf("hashing %s: %w", path, err)
	}
	return sum(h), nil
}

// HashBytes returns the file-domain hash of data, equal to HashFile of a file
// holding data.
func HashBytes(data []byte) Hash {
	h := newHasher(fileDomainKey)
	_, _ = h.Write(data)
	return sum(h)
}

// HashValue returns the value-domain hash of v's deterministic CBOR encoding.
// Equal values hash equally regardless of map iteration order.
func HashValue(v any) (Hash, error) {
	data, err := encMode.Marshal(v)
	if err != nil {
		return Hash{}, fmt.Errorf("encoding value for hashing: %w", err)
	}
	h := newHasher(valueDomainKey)
	_, _ = h.Write(data)
	return sum(h), nil
}
