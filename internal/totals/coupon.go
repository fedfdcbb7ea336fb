package totals

import (
	"sort"
	"strings"

	pkgerrors "github.com/angelmondragon/skawsh-sack/pkg/errors"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Coupon is an applied discount code. The zero value means no coupon.
type Coupon struct {
	Code    string          `json:"code,omitempty"`
	Percent decimal.Decimal `json:"percent"`
}

// Active reports whether the coupon discounts anything.
func (c Coupon) Active() bool {
	return c.Code != "" && c.Percent.IsPositive()
}

// CouponBook holds the recognised codes. Codes match case-insensitively.
type CouponBook struct {
	codes map[string]decimal.Decimal
}

// NewCouponBook builds a book from code to percentage; percentages are clamped to [0, 100].
func NewCouponBook(codes map[string]int) *CouponBook {
	book := &CouponBook{codes: make(map[string]decimal.Decimal, len(codes))}
	for code, pct := range codes {
		code = normalizeCode(code)
		if code == "" {
			continue
		}
		if pct < 0 {
			pct = 0
		}
		if pct > 100 {
			pct = 100
		}
		book.codes[code] = decimal.NewFromInt(int64(pct))
	}
	return book
}

// Apply resolves code. An empty code clears the coupon; an unknown code is a
// validation error.
func (b *CouponBook) Apply(code string) (Coupon, error) {
	code = normalizeCode(code)
	if code == "" {
		return Coupon{}, nil
	}
	pct, ok := b.codes[code]
	if !ok {
		return Coupon{}, pkgerrors.Newf(pkgerrors.CodeValidation, "coupon %q is not recognised", code).
			WithDetails(map[string]any{"code": code})
	}
	return Coupon{Code: code, Percent: pct}, nil
}

// Codes lists the recognised codes in sorted order.
func (b *CouponBook) Codes() []string {
	out := make([]string, 0, len(b.codes))
	for code := range b.codes {
		out = append(out, code)
	}
	sort.Strings(out)
	return out
}

func normalizeCode(code string) string {
	return strings.ToLower(strings.TrimSpace(code))
}
