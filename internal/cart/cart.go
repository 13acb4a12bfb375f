// Package cart holds the shopper's in-progress selection.
//
// Cart is a plain value: AddLine, UpdateQuantity, RemoveLine and Clear take a
// Cart and return the next one without touching storage. Store applies those
// functions and persists the result.
package cart

import (
	"luxe-store/internal/model"

	"github.com/shopspring/decimal"
)

// Line is one (product, size) selection.
type Line struct {
	ProductID string          `json:"productId"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"price"`
	ImageRef  string          `json:"image,omitempty"`
	Size      string          `json:"size"`
	Quantity  int             `json:"quantity"`
}

// Subtotal returns UnitPrice x Quantity.
func (l Line) Subtotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

func (l Line) matches(productID, size string) bool {
	return l.ProductID == productID && l.Size == size
}

// Cart is an ordered list of lines with unique (ProductID, Size) keys.
type Cart struct {
	Lines []Line `json:"lines"`
}

// Total returns the sum of all line subtotals.
func (c Cart) Total() decimal.Decimal {
	total := decimal.Zero
	for _, l := range c.Lines {
		total = total.Add(l.Subtotal())
	}
	return total
}

// Count returns the number of units across all lines.
func (c Cart) Count() int {
	count := 0
	for _, l := range c.Lines {
		count += l.Quantity
	}
	return count
}

// IsEmpty reports whether the cart has no lines.
func (c Cart) IsEmpty() bool {
	return len(c.Lines) == 0
}

// Snapshot returns a copy whose line slice is not shared with c.
func (c Cart) Snapshot() Cart {
	lines := make([]Line, len(c.Lines))
	copy(lines, c.Lines)
	return Cart{Lines: lines}
}

// AddLine merges quantity units of product in size into c.
// An empty size falls back to model.DefaultSize.
func AddLine(c Cart, product *model.Product, size string, quantity int) (Cart, error) {
	if quantity < 1 {
		return c, model.ErrInvalidQuantity
	}
	if size == "" {
		size = model.DefaultSize
	}
	if !model.IsValidSize(size) {
		return c, model.ErrInvalidSize
	}
	if len(product.Sizes) > 0 && !product.HasSize(size) {
		return c, model.ErrInvalidSize
	}

	next := c.Snapshot()
	for i := range next.Lines {
		if next.Lines[i].matches(product.ID, size) {
			next.Lines[i].Quantity += quantity
			return next, nil
		}
	}

	next.Lines = append(next.Lines, Line{
		ProductID: product.ID,
		Name:      product.Name,
		UnitPrice: product.Price,
		ImageRef:  product.FirstImage(),
		Size:      size,
		Quantity:  quantity,
	})
	return next, nil
}

// UpdateQuantity overwrites the quantity of a line. A quantity of zero or
// less removes it.
func UpdateQuantity(c Cart, productID, size string, quantity int) Cart {
	if quantity <= 0 {
		return RemoveLine(c, productID, size)
	}

	next := c.Snapshot()
	for i := range next.Lines {
		if next.Lines[i].matches(productID, size) {
			next.Lines[i].Quantity = quantity
			break
		}
	}
	return next
}

// RemoveLine drops the matching line, if any.
func RemoveLine(c Cart, productID, size string) Cart {
	lines := make([]Line, 0, len(c.Lines))
	for _, l := range c.Lines {
		if !l.matches(productID, size) {
			lines = append(lines, l)
		}
	}
	return Cart{Lines: lines}
}

// Clear returns an empty cart.
func Clear() Cart {
	return Cart{Lines: []Line{}}
}
