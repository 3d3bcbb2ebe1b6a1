// Package output reads and writes built asset files.
//
// A built file is a small container around the asset's serialized content:
//
//	offset  size  field
//	0       3     magic "CGX"
//	3       1     format version
//	4       1     compression (0 none, 1 lz4, 2 zstd)
//	5       4     uncompressed payload length, little endian
//	9       ...   payload
//
// A payload that does not shrink under the requested compression is stored
// uncompressed.
package output

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"os"

	"github.com/vk/contentgrid/internal/content"
	"github.com/vk/contentgrid/internal/fsutil"
)

// Extension is the file extension of built assets.
const Extension = ".cgx"

const (
	magic      = "CGX"
	version    = 1
	headerSize = 9
)

// Encode wraps payload in a container using c where it helps.
func Encode(payload []byte, c Compression) ([]byte, error) {
	if uint64(len(payload)) > math.MaxUint32 {
		return nil, fmt.Errorf("payload of %d bytes is too large", len(payload))
	}
	body, err := compress(payload, c)
	if errors.Is(err, errIncompressible) {
		body, c = payload, CompressionNone
	} else if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	buf.Grow(headerSize + len(body))
	buf.WriteString(magic)
	buf.WriteByte(version)
	buf.WriteByte(byte(c))
	var size [4]byte
	binary.LittleEndian.PutUint32(size[:], uint32(len(payload)))
	buf.Write(size[:])
	buf.Write(body)
	return buf.Bytes(), nil
}

// Decode unwraps a container and returns its payload and the compression it
// was stored with.
func Decode(data []byte) ([]byte, Compression, error) {
	if len(data) < headerSize {
		return nil, 0, fmt.Errorf("container is %d bytes, shorter than its header", len(data))
	}
	if string(data[:3]) != magic {
		return nil, 0, fmt.Errorf("bad magic %q", data[:3])
	}
	if data[3] != version {
		return nil, 0, fmt.Errorf("unsupported container version %d", data[3])
	}
	c := Compression(data[4])
	size := int(binary.LittleEndian.Uint32(data[5:9]))
	payload, err := decompress(data[headerSize:], c, size)
	if err != nil {
		return nil, 0, err
	}
	return payload, c, nil
}

// WriteFile writes payload as a container at path. Parent directories are
// created and the file is replaced atomically.
func WriteFile(path string, payload []byte, c Compression) error {
	data, err := Encode(payload, c)
	if err != nil {
		return content.WrapPipeline(err, "encoding %s", path)
	}
	if err := fsutil.WriteFileAtomic(path, data); err != nil {
		return content.WrapPipeline(err, "writing %s", path)
	}
	return nil
}

// ReadFile returns the payload of the container at path. A malformed
// container is invalid content of that file.
func ReadFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, content.WrapPipeline(err, "reading %s", path)
	}
	payload, _, err := Decode(data)
	if err != nil {
		return nil, content.WrapInvalidContent(content.NewIdentity(path, ""), err, "malformed container")
	}
	return payload, nil
}
