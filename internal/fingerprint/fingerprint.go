// SPDX-License-Identifier: MIT

// Package fingerprint derives the canonical cache key for a pricing query.
// Two requests asking for the same set of room-slots must map to the same
// key regardless of attribute order; any differing value must change it.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"
)

// namespace tags every derived key so cache, lock and waiter keys can be
// layered on top without collisions.
const namespace = "pricing:"

// Record is the canonical attribute shape. Inputs are normalized to exactly
// these three fields before hashing; anything else never reaches this layer.
type Record struct {
	Period string `json:"period"`
	Hotel  string `json:"hotel"`
	Room   string `json:"room"`
}

func (r Record) concat() string {
	return r.Period + r.Hotel + r.Room
}

func (r Record) canonical() string {
	// Marshal of a fixed-field struct cannot fail.
	b, _ := json.Marshal(r)
	return string(b)
}

// Key derives the cache key for a sequence of attribute records. The
// sequence is sorted by the concatenation of its values with the canonical
// serialized form as a stable tie-break, then serialized and hashed.
// Returns ok=false for an empty sequence; callers short-circuit to an empty
// result without touching the cache.
func Key(records []Record) (string, bool) {
	if len(records) == 0 {
		return "", false
	}

	canon := make([]Record, len(records))
	copy(canon, records)
	sort.SliceStable(canon, func(i, j int) bool {
		a, b := canon[i].concat(), canon[j].concat()
		if a != b {
			return a < b
		}
		return canon[i].canonical() < canon[j].canonical()
	})

	serialized, _ := json.Marshal(canon)
	sum := sha256.Sum256(serialized)
	return namespace + hex.EncodeToString(sum[:]), true
}
