// Package uuidx converts time-based UUIDs to and from the byte layout used
// for refresh-token primary keys.
//
// A version 1 UUID stores its timestamp low word first, so consecutive values
// scatter across a B-tree index. Moving time_hi and time_mid in front of
// time_low makes keys generated close in time sort next to each other.
package uuidx

import (
	"fmt"

	"github.com/google/uuid"
)

// ToOrderedBytes returns the 16 byte storage form of id:
// time_hi | time_mid | time_low | clock_seq+node.
func ToOrderedBytes(id uuid.UUID) []byte {
	b := make([]byte, 0, 16)
	b = append(b, id[6:8]...)
	b = append(b, id[4:6]...)
	b = append(b, id[0:4]...)
	b = append(b, id[8:16]...)
	return b
}

// FromOrderedBytes reverses ToOrderedBytes.
func FromOrderedBytes(b []byte) (uuid.UUID, error) {
	var id uuid.UUID
	if len(b) != 16 {
		return id, fmt.Errorf("ordered uuid: want 16 bytes, got %d", len(b))
	}
	copy(id[0:4], b[4:8])
	copy(id[4:6], b[2:4])
	copy(id[6:8], b[0:2])
	copy(id[8:16], b[8:16])
	return id, nil
}
