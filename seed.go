// Copyright (C) The mixqtl Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package mixqtl

import (
	"encoding/binary"

	"golang.org/x/crypto/blake2b"
	"golang.org/x/exp/rand"
)

// newStream returns the RNG stream for element i of a simulation seeded
// with seed. Hashing the pair makes the streams independent of each
// other and of how work is split across threads.
func newStream(seed uint64, i int) rand.Source {
	var buf [16]byte
	binary.LittleEndian.PutUint64(buf[:8], seed)
	binary.LittleEndian.PutUint64(buf[8:], uint64(i))
	sum := blake2b.Sum256(buf[:])
	return rand.NewSource(binary.LittleEndian.Uint64(sum[:8]))
}
