// Package cart holds the stock reconciliation rules for cart line items.
package cart

import "fmt"

// Adjustment actions.
const (
	ActionClamped = "clamped"
	ActionRemoved = "removed"
)

// Line is a held cart quantity for one product.
type Line struct {
	ProductID int64
	Name      string
	Quantity  int
}

// Adjustment describes a change the reconciliation made to one line.
type Adjustment struct {
	ProductID   int64  `json:"productId"`
	Action      string `json:"action"`
	OldQuantity int    `json:"oldQuantity"`
	NewQuantity int    `json:"newQuantity"`
	Message     string `json:"message"`
}

// Clamp bounds a requested quantity to [1, stock]. ok is false when stock
// is zero and the line cannot be held at all.
func Clamp(requested, stock int) (qty int, ok bool) {
	if stock <= 0 {
		return 0, false
	}
	if requested < 1 {
		return 1, true
	}
	if requested > stock {
		return stock, true
	}
	return requested, true
}

// Reconcile compares held quantities with authoritative stock. Lines whose
// product is missing from stock are treated as sold out. It returns the lines
// to keep (with clamped quantities) and one Adjustment per changed line.
func Reconcile(lines []Line, stock map[int64]int) ([]Line, []Adjustment) {
	kept := make([]Line, 0, len(lines))
	var adjustments []Adjustment

	for _, l := range lines {
		available, found := stock[l.ProductID]
		if !found {
			available = 0
		}

		qty, ok := Clamp(l.Quantity, available)
		switch {
		case !ok:
			adjustments = append(adjustments, Adjustment{
				ProductID:   l.ProductID,
				Action:      ActionRemoved,
				OldQuantity: l.Quantity,
				NewQuantity: 0,
				Message:     fmt.Sprintf("%s is out of stock and was removed from your cart", displayName(l)),
			})
		case qty != l.Quantity:
			adjustments = append(adjustments, Adjustment{
				ProductID:   l.ProductID,
				Action:      ActionClamped,
				OldQuantity: l.Quantity,
				NewQuantity: qty,
				Message:     fmt.Sprintf("Only %d of %s left in stock; your quantity was reduced", qty, displayName(l)),
			})
			l.Quantity = qty
			kept = append(kept, l)
		default:
			kept = append(kept, l)
		}
	}

	return kept, adjustments
}

func displayName(l Line) string {
	if l.Name != "" {
		return l.Name
	}
	return fmt.Sprintf("product #%d", l.ProductID)
}
