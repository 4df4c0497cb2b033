package checkout

import (
	"github.com/noah-isme/checkout-pricing/internal/pricing"
)

// Observer receives notifications about scan outcomes. Implementations must
// not call back into the Checkout.
type Observer interface {
	Scanned(name string, total pricing.Money)
	BundleCompleted(name string)
	Rejected(name string)
}

// Option configures a Checkout.
type Option func(*Checkout)

// WithObserver attaches an observer notified on every scan.
func WithObserver(o Observer) Option {
	return func(c *Checkout) { c.observer = o }
}

// Checkout accumulates the running total of a single shopping session.
// It is not safe for concurrent use; see Session.
type Checkout struct {
	catalog  *pricing.Catalog
	progress map[string]int
	total    pricing.Money
	scanned  int
	observer Observer
}

// New starts an empty checkout priced against catalog. The catalog is shared
// and never modified.
func New(catalog *pricing.Catalog, opts ...Option) *Checkout {
	c := &Checkout{
		catalog:  catalog,
		progress: make(map[string]int),
	}
	for _, rule := range catalog.Rules() {
		if rule.HasDiscount() {
			c.progress[rule.Name] = 0
		}
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NewFromRules builds a catalog from rules and starts a checkout against it.
func NewFromRules(rules []pricing.Rule, opts ...Option) (*Checkout, error) {
	catalog, err := pricing.NewCatalog(rules)
	if err != nil {
		return nil, err
	}
	return New(catalog, opts...), nil
}

// Scan prices one unit of the named item. Unknown items return an
// *UnknownItemError and leave the checkout untouched.
func (c *Checkout) Scan(name string) error {
	rule, ok := c.catalog.Lookup(name)
	if !ok {
		if c.observer != nil {
			c.observer.Rejected(name)
		}
		return &UnknownItemError{Name: name}
	}

	c.total += rule.Price
	c.scanned++

	if rule.Discount != nil {
		count := c.progress[name] + 1
		if count == rule.Discount.Quantity {
			// Replace the full-price charges of the bundle with its discounted price.
			c.total -= pricing.Money(rule.Discount.Quantity) * rule.Price
			c.total += rule.Discount.Price
			count = 0
			if c.observer != nil {
				c.observer.BundleCompleted(name)
			}
		}
		c.progress[name] = count
	}

	if c.observer != nil {
		c.observer.Scanned(name, c.total)
	}
	return nil
}

// ScanAll scans names in order and stops at the first error. Scans before
// the failing one stay applied.
func (c *Checkout) ScanAll(names ...string) error {
	for _, name := range names {
		if err := c.Scan(name); err != nil {
			return err
		}
	}
	return nil
}

// Total returns the running total of all successful scans.
func (c *Checkout) Total() pricing.Money {
	return c.total
}

// Progress returns how many units of a discounted item were scanned since its
// last completed bundle. Items without a discount always report 0.
func (c *Checkout) Progress(name string) int {
	return c.progress[name]
}

// Scanned returns the number of successful scans.
func (c *Checkout) Scanned() int {
	return c.scanned
}

// Quote prices a whole basket from scratch.
func Quote(catalog *pricing.Catalog, names []string) (pricing.Money, error) {
	c := New(catalog)
	if err := c.ScanAll(names...); err != nil {
		return 0, err
	}
	return c.Total(), nil
}
