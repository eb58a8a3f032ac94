// internal/storefront/cartstore/types.go

// Package cartstore holds the storefront's local cart, wishlist and session
// state. Nothing here is synced to the backend until checkout.
package cartstore

import (
	"bytes"
	"encoding/json"
	"errors"
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/your-org/fruitbox/internal/pkg/producttype"
)

var (
	ErrInvalidType   = errors.New("cart line needs a valid product type")
	ErrInvalidID     = errors.New("cart line needs a product id")
	ErrNotInCart     = errors.New("item is not in the cart")
	ErrLoginRequired = errors.New("login required")
)

// Identity is what makes two lines the same item
type Identity struct {
	ProductID int
	Type      producttype.Type
}

// DisplayPrice is a price shown to the shopper. It is advisory only; the
// order path accepts no price at all, and the amount is unexported so a
// DisplayPrice cannot be turned back into a plain decimal by accident.
type DisplayPrice struct {
	amount decimal.Decimal
}

// NewDisplayPrice wraps a decimal for display
func NewDisplayPrice(d decimal.Decimal) DisplayPrice {
	return DisplayPrice{amount: d}
}

func (p DisplayPrice) String() string {
	return "₹" + p.amount.StringFixed(2)
}

func (p DisplayPrice) MarshalJSON() ([]byte, error) {
	return p.amount.MarshalJSON()
}

func (p *DisplayPrice) UnmarshalJSON(b []byte) error {
	return p.amount.UnmarshalJSON(b)
}

// DisplaySnapshot is what the listing page showed when the item was added
type DisplaySnapshot struct {
	Name           string        `json:"name"`
	Image          string        `json:"image,omitempty"`
	DisplayedPrice DisplayPrice  `json:"displayedPrice"`
	OriginalPrice  *DisplayPrice `json:"originalPrice,omitempty"`
}

// CartLine is one product/type/quantity tuple
type CartLine struct {
	ProductID      int              `json:"productId"`
	Type           producttype.Type `json:"type"`
	Quantity       int              `json:"quantity"`
	IsSubscription bool             `json:"isSubscription,omitempty"`
	Snapshot       DisplaySnapshot  `json:"clientSnapshot"`
}

// Identity returns the line's identity
func (l CartLine) Identity() Identity {
	return Identity{ProductID: l.ProductID, Type: l.Type}
}

// WishlistEntry is a saved item. Same identity rule as CartLine.
type WishlistEntry struct {
	ProductID int              `json:"productId"`
	Type      producttype.Type `json:"type"`
	Snapshot  DisplaySnapshot  `json:"clientSnapshot"`
}

// Identity returns the entry's identity
func (e WishlistEntry) Identity() Identity {
	return Identity{ProductID: e.ProductID, Type: e.Type}
}

// CartChange is the detail published with every cartUpdated event
type CartChange struct {
	Revision      uint64
	TotalQuantity int
}

// decodeStoredLine reads one persisted cart or wishlist entry field by
// field. Older entries used "id", may lack a type and may carry numbers as
// strings. A bad field is repaired; only an entry with no usable id is
// rejected.
func decodeStoredLine(raw json.RawMessage) (CartLine, bool) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return CartLine{}, false
	}

	id := looseInt(fields["productId"])
	if id <= 0 {
		id = looseInt(fields["id"])
	}
	if id <= 0 {
		return CartLine{}, false
	}

	sub := looseBool(fields["isSubscription"])

	var name string
	var t producttype.Type
	if json.Unmarshal(fields["type"], &name) == nil {
		if parsed, err := producttype.Parse(name); err == nil {
			t = parsed
		}
	}
	if !t.Valid() {
		t = producttype.InferFromID(id, sub)
	}

	qty := looseInt(fields["quantity"])
	if qty < 1 {
		qty = 1
	}

	var snap DisplaySnapshot
	if err := json.Unmarshal(fields["clientSnapshot"], &snap); err != nil {
		snap = DisplaySnapshot{}
	}

	return CartLine{
		ProductID:      id,
		Type:           t,
		Quantity:       qty,
		IsSubscription: sub,
		Snapshot:       snap,
	}, true
}

// looseInt accepts a JSON number or a numeric string. Fractions are
// truncated; anything unreadable is 0.
func looseInt(raw json.RawMessage) int {
	if len(raw) == 0 {
		return 0
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v interface{}
	if err := dec.Decode(&v); err != nil {
		return 0
	}

	var s string
	switch x := v.(type) {
	case json.Number:
		s = x.String()
	case string:
		s = strings.TrimSpace(x)
	default:
		return 0
	}

	if i, err := strconv.ParseInt(s, 10, 32); err == nil {
		return int(i)
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) {
		return 0
	}
	return int(math.Max(math.Min(f, math.MaxInt32), math.MinInt32))
}

func looseBool(raw json.RawMessage) bool {
	var b bool
	if json.Unmarshal(raw, &b) == nil {
		return b
	}
	var s string
	if json.Unmarshal(raw, &s) == nil {
		b, _ = strconv.ParseBool(strings.TrimSpace(s))
	}
	return b
}
