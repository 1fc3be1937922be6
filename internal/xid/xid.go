// Package xid mints prefixed opaque identifiers for orders, discount usage
// rows, refund ledger entries and simulated payment references.
package xid

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"
)

// New returns an id of the form prefix-nanos-randomhex. The random suffix
// keeps ids distinct when two records are minted in the same nanosecond;
// if the random source fails the timestamp alone is used.
func New(prefix string) string {
	now := time.Now().UnixNano()
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		return fmt.Sprintf("%s-%d", prefix, now)
	}
	return fmt.Sprintf("%s-%d-%s", prefix, now, hex.EncodeToString(buf))
}
