// Package cache memoises scan results per (chart, horizon, stride) within
// one session. Results are computed once, then published; a failed
// computation publishes nothing.
package cache

import (
	"context"
	"fmt"
	"strconv"
)

// Store holds encoded scan results.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
}

// keyVersion changes whenever the encoded result or the rule semantics
// change, so stale entries are never read.
const keyVersion = "v1"

// Key identifies one scan.
type Key struct {
	Fingerprint  string
	HorizonYears float64
	Stride       int
	StartOffset  int
	Orb          float64
	Composite    bool
}

func (k Key) String() string {
	return fmt.Sprintf("scan:%s:%s:h%s:s%d:o%d:orb%s:c%t",
		keyVersion,
		k.Fingerprint,
		strconv.FormatFloat(k.HorizonYears, 'g', -1, 64),
		k.Stride,
		k.StartOffset,
		strconv.FormatFloat(k.Orb, 'g', -1, 64),
		k.Composite,
	)
}
