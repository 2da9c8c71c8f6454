package email

import (
	"fmt"
	"strings"

	"github.com/01moynul/storefront-golang/internal/models"
	"github.com/shopspring/decimal"
)

// OrderConfirmation builds the confirmation mail sent after checkout.
func OrderConfirmation(p models.OrderEmailPayload) Message {
	var b strings.Builder
	name := p.Name
	if name == "" {
		name = "there"
	}
	fmt.Fprintf(&b, "Hi %s,\n\nThanks for your order #%d.\n\n", name, p.OrderID)
	for _, it := range p.Items {
		line := decimal.NewFromFloat(it.Price).Mul(decimal.NewFromInt(int64(it.Quantity)))
		fmt.Fprintf(&b, "  %d x %s  %s\n", it.Quantity, it.Name, line.StringFixed(2))
	}
	fmt.Fprintf(&b, "\nTotal: %s\n\nWe will let you know when it ships.\n", decimal.NewFromFloat(p.Total).StringFixed(2))

	return Message{
		To:      p.To,
		Subject: fmt.Sprintf("Order #%d confirmed", p.OrderID),
		Body:    b.String(),
	}
}
