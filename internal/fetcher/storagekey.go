package fetcher

import (
	"encoding/binary"
	"fmt"
	"strconv"

	"github.com/cespare/xxhash/v2"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

const subtensorPallet = "SubtensorModule"

// twox128 is the Substrate storage prefix hash: two seeded xxhash64 digests,
// little-endian, concatenated.
func twox128(data []byte) []byte {
	out := make([]byte, 16)
	for seed := uint64(0); seed < 2; seed++ {
		d := xxhash.NewWithSeed(seed)
		_, _ = d.Write(data)
		binary.LittleEndian.PutUint64(out[seed*8:], d.Sum64())
	}
	return out
}

// storageMapKey builds the key of an Identity-hashed map entry keyed by netuid.
func storageMapKey(pallet, item string, netuid uint16) string {
	key := make([]byte, 0, 34)
	key = append(key, twox128([]byte(pallet))...)
	key = append(key, twox128([]byte(item))...)
	key = binary.LittleEndian.AppendUint16(key, netuid)
	return hexutil.Encode(key)
}

// ParseNetUID validates a subnet identifier.
func ParseNetUID(netuid string) (uint16, error) {
	v, err := strconv.ParseUint(netuid, 10, 16)
	if err != nil {
		return 0, fmt.Errorf("%w: invalid netuid %q: %v", ErrParse, netuid, err)
	}
	return uint16(v), nil
}
