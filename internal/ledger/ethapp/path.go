package ethapp

import (
	"encoding/binary"
	"fmt"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

const (
	// HardenedOffset marks a hardened derivation index
	HardenedOffset uint32 = 0x80000000

	bip44Components      = 5
	serializedPathLength = 1 + 4*bip44Components
)

// BIP44Path is a five component derivation path
type BIP44Path struct {
	Purpose uint32
	Coin    uint32
	Account uint32
	Change  uint32
	Index   uint32
}

// DefaultPath returns m/44'/60'/0'/0/{index}, the path used for every EVM chain
func DefaultPath(index uint32) BIP44Path {
	return BIP44Path{
		Purpose: HardenedOffset + 44,
		Coin:    HardenedOffset + 60,
		Account: HardenedOffset,
		Change:  0,
		Index:   index,
	}
}

// Components returns the path as ordered indices
func (p BIP44Path) Components() []uint32 {
	return []uint32{p.Purpose, p.Coin, p.Account, p.Change, p.Index}
}

// Serialize encodes the path as the device expects it: a component count
// followed by five big-endian uint32 values
func (p BIP44Path) Serialize() []byte {
	buf := make([]byte, serializedPathLength)
	buf[0] = bip44Components
	for i, c := range p.Components() {
		binary.BigEndian.PutUint32(buf[1+4*i:], c)
	}

	return buf
}

func (p BIP44Path) String() string {
	var sb strings.Builder
	sb.WriteString("m")
	for _, c := range p.Components() {
		if c >= HardenedOffset {
			fmt.Fprintf(&sb, "/%d'", c-HardenedOffset)
		} else {
			fmt.Fprintf(&sb, "/%d", c)
		}
	}

	return sb.String()
}

// ParseBIP44Path parses a path string such as "m/44'/60'/0'/0/0"
func ParseBIP44Path(path string) (BIP44Path, error) {
	rest, ok := strings.CutPrefix(path, "m/")
	if !ok {
		return BIP44Path{}, errors.Errorf("invalid BIP44 path: %s", path)
	}

	parts := strings.Split(rest, "/")
	if len(parts) != bip44Components {
		return BIP44Path{}, errors.Errorf("invalid BIP44 path %s: want %d components, got %d", path, bip44Components, len(parts))
	}

	indices := make([]uint32, 0, len(parts))
	for _, part := range parts {
		if part == "" {
			return BIP44Path{}, errors.Errorf("invalid BIP44 path %s: empty segment", path)
		}

		hardened := false
		if strings.HasSuffix(part, "'") || strings.HasSuffix(part, "h") {
			hardened = true
			part = part[:len(part)-1]
		}

		parsed, err := strconv.ParseUint(part, 10, 32)
		if err != nil {
			return BIP44Path{}, errors.Errorf("invalid path segment: %s", part)
		}
		index := uint32(parsed)

		if hardened {
			if index >= HardenedOffset {
				return BIP44Path{}, errors.Errorf("hardened path segment out of range: %s", part)
			}
			index += HardenedOffset
		}

		indices = append(indices, index)
	}

	return BIP44Path{
		Purpose: indices[0],
		Coin:    indices[1],
		Account: indices[2],
		Change:  indices[3],
		Index:   indices[4],
	}, nil
}
