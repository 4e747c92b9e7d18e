// SPDX-License-Identifier: MIT

package fingerprint

import (
	"math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKey_Deterministic(t *testing.T) {
	records := []Record{
		{Period: "Summer", Hotel: "FloatingPointResort", Room: "SingletonRoom"},
	}

	k1, ok := Key(records)
	assert.True(t, ok)
	k2, ok := Key(records)
	assert.True(t, ok)
	assert.Equal(t, k1, k2)
	assert.True(t, strings.HasPrefix(k1, "pricing:"))
}

func TestKey_EmptyInput(t *testing.T) {
	_, ok := Key(nil)
	assert.False(t, ok)

	_, ok = Key([]Record{})
	assert.False(t, ok)
}

func TestKey_OrderIndependent(t *testing.T) {
	a := []Record{
		{Period: "Summer", Hotel: "H", Room: "R"},
		{Period: "Winter", Hotel: "H", Room: "R"},
	}
	b := []Record{
		{Period: "Winter", Hotel: "H", Room: "R"},
		{Period: "Summer", Hotel: "H", Room: "R"},
	}

	ka, _ := Key(a)
	kb, _ := Key(b)
	assert.Equal(t, ka, kb, "permutations must share one cache entry")
}

func TestKey_AnyPermutationStable(t *testing.T) {
	records := []Record{
		{Period: "Summer", Hotel: "A", Room: "1"},
		{Period: "Winter", Hotel: "B", Room: "2"},
		{Period: "Spring", Hotel: "C", Room: "3"},
		{Period: "Autumn", Hotel: "D", Room: "4"},
	}
	want, _ := Key(records)

	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 20; i++ {
		perm := make([]Record, len(records))
		for j, p := range rng.Perm(len(records)) {
			perm[j] = records[p]
		}
		got, _ := Key(perm)
		assert.Equal(t, want, got, "permutation %d", i)
	}
}

func TestKey_ValueChangesKey(t *testing.T) {
	base := []Record{{Period: "Summer", Hotel: "H", Room: "R"}}

	variants := [][]Record{
		{{Period: "Winter", Hotel: "H", Room: "R"}},
		{{Period: "Summer", Hotel: "H2", Room: "R"}},
		{{Period: "Summer", Hotel: "H", Room: "R2"}},
		{{Period: "Summer", Hotel: "H", Room: "R"}, {Period: "Summer", Hotel: "H", Room: "R"}},
	}

	want, _ := Key(base)
	for i, v := range variants {
		got, _ := Key(v)
		assert.NotEqual(t, want, got, "variant %d must differ", i)
	}
}

func TestKey_MissingFieldsDropped(t *testing.T) {
	// A record with an absent field hashes as the empty string for that
	// field, not as some default.
	a, _ := Key([]Record{{Period: "Summer", Hotel: "H"}})
	b, _ := Key([]Record{{Period: "Summer", Hotel: "H", Room: ""}})
	assert.Equal(t, a, b)
}

func TestKey_FieldBoundariesMatter(t *testing.T) {
	// Concatenation is only the sort key; the serialized form keeps field
	// boundaries, so shifting characters between fields changes the digest.
	a, _ := Key([]Record{{Period: "ab", Hotel: "c", Room: "d"}})
	b, _ := Key([]Record{{Period: "a", Hotel: "bc", Room: "d"}})
	assert.NotEqual(t, a, b)
}
