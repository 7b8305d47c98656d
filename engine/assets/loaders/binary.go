package loaders

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"os"
)

// spirvMagic is the first word of every SPIR-V module.
const spirvMagic = 0x07230203

// BinaryLoader reads precompiled SPIR-V modules (.spv).
type BinaryLoader struct{}

func (bl *BinaryLoader) Load(ctx context.Context, path string) (any, error) {
	return bl.LoadSpirv(path)
}

func (bl *BinaryLoader) LoadSpirv(path string) ([]uint32, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	buf, err := io.ReadAll(f)
	if err != nil {
		return nil, err
	}
	code, err := bytesToBytecode(buf)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return code, nil
}

// bytesToBytecode reinterprets a little-endian SPIR-V byte stream as words.
func bytesToBytecode(b []byte) ([]uint32, error) {
	if len(b) == 0 || len(b)%4 != 0 {
		return nil, fmt.Errorf("SPIR-V size %d is not a positive multiple of 4", len(b))
	}
	byteCode := make([]uint32, len(b)/4)
	for i := range byteCode {
		byteCode[i] = binary.LittleEndian.Uint32(b[i*4:])
	}
	if byteCode[0] != spirvMagic {
		return nil, fmt.Errorf("bad SPIR-V magic %#08x", byteCode[0])
	}
	return byteCode, nil
}
