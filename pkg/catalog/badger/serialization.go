package badger

import (
	"encoding/binary"
	"encoding/json"
	"fmt"

	"github.com/marmos91/dittodocs/pkg/catalog"
)

// Entries are stored as JSON so the database stays inspectable with the badger
// CLI; the version marker is a fixed-width big-endian integer.

func encodeEntry(entry *catalog.Entry) ([]byte, error) {
	data, err := json.Marshal(entry)
	if err != nil {
		return nil, fmt.Errorf("failed to encode catalog entry: %w", err)
	}
	return data, nil
}

func decodeEntry(data []byte) (*catalog.Entry, error) {
	var entry catalog.Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, fmt.Errorf("failed to decode catalog entry: %w", err)
	}
	return &entry, nil
}

func encodeVersion(v uint32) []byte {
	buf := make([]byte, 4)
	binary.BigEndian.PutUint32(buf, v)
	return buf
}

func decodeVersion(data []byte) (uint32, error) {
	if len(data) != 4 {
		return 0, fmt.Errorf("invalid catalog version length %d", len(data))
	}
	return binary.BigEndian.Uint32(data), nil
}
