// README: Cart lines keyed by product and selected options.
package cart

import "gelis/internal/types"

// Line is one cart entry. Two lines are the same entry iff both ProductID and
// SelectedOptions match; adding the same entry twice merges quantities.
type Line struct {
	ProductID       types.ID    `json:"productId"`
	Quantity        int         `json:"quantity"`
	UnitPrice       types.Money `json:"unitPrice"`
	SelectedOptions string      `json:"selectedOptions"`
}

func (l Line) sameEntry(productID types.ID, options string) bool {
	return l.ProductID == productID && l.SelectedOptions == options
}

// Total is the sum of price*quantity over all lines.
func Total(lines []Line) types.Money {
	total := types.Rupiah(0)
	for _, l := range lines {
		total = total.Add(l.UnitPrice.Mul(int64(l.Quantity)))
	}
	return total
}

// Count is the sum of quantities.
func Count(lines []Line) int {
	n := 0
	for _, l := range lines {
		n += l.Quantity
	}
	return n
}
