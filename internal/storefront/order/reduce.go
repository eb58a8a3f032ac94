// internal/storefront/order/reduce.go
package order

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/your-org/fruitbox/internal/pkg/producttype"
	"github.com/your-org/fruitbox/internal/storefront/cartstore"
)

const (
	MinQuantity = 1
	MaxQuantity = 7
)

// RawLine is a cart line as it may come out of storage: possibly keyed by
// "id" instead of "productId", possibly untyped, with any kind of quantity
type RawLine struct {
	ID             int         `json:"id,omitempty"`
	ProductID      int         `json:"productId,omitempty"`
	Type           string      `json:"type,omitempty"`
	Quantity       interface{} `json:"quantity"`
	IsSubscription bool        `json:"isSubscription,omitempty"`
}

// Line is what the backend receives. It has no price field.
type Line struct {
	ProductID int              `json:"productId"`
	Type      producttype.Type `json:"type"`
	Quantity  int              `json:"quantity"`
}

// FromCart turns cart lines into raw lines, dropping the display snapshot
func FromCart(lines []cartstore.CartLine) []RawLine {
	out := make([]RawLine, 0, len(lines))
	for _, l := range lines {
		out = append(out, RawLine{
			ProductID:      l.ProductID,
			Type:           string(l.Type),
			Quantity:       l.Quantity,
			IsSubscription: l.IsSubscription,
		})
	}
	return out
}

// Reduce drops lines with no id, fills in a missing type from the id range
// and clamps quantities to [MinQuantity, MaxQuantity]
func Reduce(raw []RawLine) []Line {
	out := make([]Line, 0, len(raw))
	for _, r := range raw {
		id := r.ProductID
		if id == 0 {
			id = r.ID
		}
		if id <= 0 {
			continue
		}

		t, err := producttype.Parse(r.Type)
		if err != nil {
			t = producttype.InferFromID(id, r.IsSubscription)
		}

		out = append(out, Line{
			ProductID: id,
			Type:      t,
			Quantity:  ClampQuantity(r.Quantity),
		})
	}
	return out
}

// ClampQuantity parses v as a whole number and clamps it. Anything that is
// not a positive number becomes MinQuantity.
func ClampQuantity(v interface{}) int {
	n := 0
	switch q := v.(type) {
	case int:
		n = q
	case int64:
		n = clampInt64(q)
	case float64:
		if !math.IsNaN(q) {
			n = clampInt64(int64(math.Max(math.Min(q, math.MaxInt32), math.MinInt32)))
		}
	case json.Number:
		if i, err := q.Int64(); err == nil {
			n = clampInt64(i)
		} else if f, err := q.Float64(); err == nil {
			return ClampQuantity(f)
		}
	case string:
		s := strings.TrimSpace(q)
		if i, err := strconv.Atoi(s); err == nil {
			n = i
		} else if f, err := strconv.ParseFloat(s, 64); err == nil {
			return ClampQuantity(f)
		}
	}

	switch {
	case n < MinQuantity:
		return MinQuantity
	case n > MaxQuantity:
		return MaxQuantity
	}
	return n
}

func clampInt64(i int64) int {
	if i > math.MaxInt32 {
		return math.MaxInt32
	}
	if i < math.MinInt32 {
		return math.MinInt32
	}
	return int(i)
}
