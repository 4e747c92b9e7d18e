// SPDX-License-Identifier: MIT

// Package pricing wraps the upstream pricing oracle behind the coalescing
// cache: callers hand it attribute records, it hands back priced rates.
package pricing

import "github.com/stayware/rategate/internal/fingerprint"

// Attributes identifies one priceable room-slot. JSON field names are
// matched case-insensitively on decode, so input casing variants collapse
// to the same canonical record.
type Attributes struct {
	Period string `json:"period"`
	Hotel  string `json:"hotel"`
	Room   string `json:"room"`
}

// Rate is one priced room-slot as returned by the oracle.
type Rate struct {
	Period string  `json:"period"`
	Hotel  string  `json:"hotel"`
	Room   string  `json:"room"`
	Price  float64 `json:"price"`
}

// records converts attributes to the canonical fingerprint shape.
func records(attrs []Attributes) []fingerprint.Record {
	out := make([]fingerprint.Record, len(attrs))
	for i, a := range attrs {
		out[i] = fingerprint.Record{
			Period: a.Period,
			Hotel:  a.Hotel,
			Room:   a.Room,
		}
	}
	return out
}
