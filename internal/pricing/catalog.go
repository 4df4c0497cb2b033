package pricing

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	validator "github.com/go-playground/validator/v10"
)

var (
	// ErrDuplicateRule is returned when two rules share the same item name.
	ErrDuplicateRule = errors.New("pricing: duplicate rule")
	// ErrInvalidRule is returned when a rule fails validation.
	ErrInvalidRule = errors.New("pricing: invalid rule")
)

var validate = validator.New()

// Catalog is an immutable set of pricing rules keyed by item name. It is safe
// for concurrent reads once built.
type Catalog struct {
	rules map[string]Rule
}

// NewCatalog validates the rules and indexes them by name.
func NewCatalog(rules []Rule) (*Catalog, error) {
	index := make(map[string]Rule, len(rules))
	for i, rule := range rules {
		rule.Name = strings.TrimSpace(rule.Name)
		if err := validateRule(rule); err != nil {
			return nil, fmt.Errorf("%w: rule %d (%q): %v", ErrInvalidRule, i, rule.Name, err)
		}
		if _, exists := index[rule.Name]; exists {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateRule, rule.Name)
		}
		if rule.Discount != nil {
			d := *rule.Discount
			rule.Discount = &d
		}
		index[rule.Name] = rule
	}
	return &Catalog{rules: index}, nil
}

// MustCatalog behaves like NewCatalog but panics on error. Useful for tests and fixtures.
func MustCatalog(rules ...Rule) *Catalog {
	c, err := NewCatalog(rules)
	if err != nil {
		panic(err)
	}
	return c
}

// Lookup returns a copy of the rule registered for name.
func (c *Catalog) Lookup(name string) (Rule, bool) {
	if c == nil {
		return Rule{}, false
	}
	rule, ok := c.rules[name]
	if ok && rule.Discount != nil {
		d := *rule.Discount
		rule.Discount = &d
	}
	return rule, ok
}

// Len returns the number of rules in the catalog.
func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.rules)
}

// Rules returns a copy of all rules ordered by name.
func (c *Catalog) Rules() []Rule {
	if c == nil {
		return nil
	}
	out := make([]Rule, 0, len(c.rules))
	for _, rule := range c.rules {
		if rule.Discount != nil {
			d := *rule.Discount
			rule.Discount = &d
		}
		out = append(out, rule)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// validateRule checks the rule and, through the pointer, its discount.
func validateRule(rule Rule) error {
	return validate.Struct(rule)
}
