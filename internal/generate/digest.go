// SPDX-License-Identifier: MPL-2.0

package generate

import (
	"encoding/hex"

	"github.com/zeebo/blake3"
)

// Digest is a BLAKE3 digest of rendered output.
type Digest [32]byte

// DigestOf hashes content.
func DigestOf(content []byte) Digest {
	return blake3.Sum256(content)
}

// String returns the digest in hex.
func (d Digest) String() string {
	return hex.EncodeToString(d[:])
}

// Short returns the first twelve hex digits.
func (d Digest) Short() string {
	return d.String()[:12]
}
