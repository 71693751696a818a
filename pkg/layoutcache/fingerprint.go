// Package layoutcache persists settled node positions keyed by a structural
// fingerprint of the edge set, so an unchanged graph skips re-simulation on
// the next load. The cache is pure data behind a swappable durable store;
// validity checking stays with the caller.
package layoutcache

import (
	"sort"
	"strconv"

	"github.com/vanderheijden86/knotwork/pkg/metrics"
	"github.com/vanderheijden86/knotwork/pkg/model"
)

// Fingerprint computes the structural hash of an edge set: edge keys
// (source#target#relationship) sorted, concatenated, folded through a
// rolling 31-multiplier hash with 32-bit wraparound, base-36 encoded.
// Deterministic and independent of input order. A fast fingerprint, not a
// cryptographic one; collisions across different edge sets are an accepted
// tradeoff.
func Fingerprint(edges []model.Edge) string {
	defer metrics.Timer(metrics.Fingerprint)()

	keys := make([]string, len(edges))
	for i, e := range edges {
		keys[i] = e.Key()
	}
	sort.Strings(keys)

	// Folding key-by-key is equivalent to hashing the concatenation.
	var h uint32
	for _, key := range keys {
		for _, r := range key {
			h = h*31 + uint32(r)
		}
	}

	return strconv.FormatUint(uint64(h), 36)
}
