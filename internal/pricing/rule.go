package pricing

// Money represents a monetary value stored in minor units.
type Money = int64

// Discount is a bulk policy: Quantity units are charged Price in total.
type Discount struct {
	Quantity int   `json:"quantity" yaml:"quantity" validate:"gte=1"`
	Price    Money `json:"price" yaml:"price" validate:"gte=0"`
}

// Rule describes how a single item type is priced.
type Rule struct {
	Name     string    `json:"name" yaml:"name" validate:"required"`
	Price    Money     `json:"price" yaml:"price" validate:"gte=0"`
	Discount *Discount `json:"discount,omitempty" yaml:"discount,omitempty"`
}

// HasDiscount reports whether the rule carries a bulk discount.
func (r Rule) HasDiscount() bool {
	return r.Discount != nil
}

// Cost returns the price of qty units scanned from an empty discount counter.
func (r Rule) Cost(qty int) Money {
	if qty <= 0 {
		return 0
	}
	if r.Discount == nil {
		return Money(qty) * r.Price
	}
	bundles := qty / r.Discount.Quantity
	rest := qty % r.Discount.Quantity
	return Money(bundles)*r.Discount.Price + Money(rest)*r.Price
}
