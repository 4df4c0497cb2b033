package checkout_test

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"testing"

	"github.com/cucumber/godog"

	"github.com/noah-isme/checkout-pricing/internal/checkout"
	"github.com/noah-isme/checkout-pricing/internal/pricing"
)

type checkoutTestContext struct {
	rules    []pricing.Rule
	checkout *checkout.Checkout
	err      error
}

func (c *checkoutTestContext) reset() {
	c.rules = nil
	c.checkout = nil
	c.err = nil
}

func (c *checkoutTestContext) thePricingRules(table *godog.Table) error {
	for i, row := range table.Rows {
		if i == 0 {
			continue
		}
		if len(row.Cells) != 4 {
			return fmt.Errorf("row %d: expected 4 cells, got %d", i, len(row.Cells))
		}
		price, err := strconv.ParseInt(row.Cells[1].Value, 10, 64)
		if err != nil {
			return fmt.Errorf("row %d: price: %w", i, err)
		}
		rule := pricing.Rule{Name: row.Cells[0].Value, Price: price}
		if qty := strings.TrimSpace(row.Cells[2].Value); qty != "" {
			quantity, err := strconv.Atoi(qty)
			if err != nil {
				return fmt.Errorf("row %d: discount quantity: %w", i, err)
			}
			discountPrice, err := strconv.ParseInt(strings.TrimSpace(row.Cells[3].Value), 10, 64)
			if err != nil {
				return fmt.Errorf("row %d: discount price: %w", i, err)
			}
			rule.Discount = &pricing.Discount{Quantity: quantity, Price: discountPrice}
		}
		c.rules = append(c.rules, rule)
	}
	return nil
}

func (c *checkoutTestContext) aNewCheckout() error {
	co, err := checkout.NewFromRules(c.rules)
	if err != nil {
		return err
	}
	c.checkout = co
	return nil
}

func (c *checkoutTestContext) iScan(name string) error {
	c.err = c.checkout.Scan(name)
	return nil
}

func (c *checkoutTestContext) iScanTimes(name string, times int) error {
	for i := 0; i < times; i++ {
		if err := c.checkout.Scan(name); err != nil {
			return err
		}
	}
	return nil
}

func (c *checkoutTestContext) theTotalIs(want int64) error {
	if got := c.checkout.Total(); got != want {
		return fmt.Errorf("expected total %d, got %d", want, got)
	}
	return nil
}

func (c *checkoutTestContext) theScanFailsWith(message string) error {
	if c.err == nil {
		return errors.New("expected scan to fail")
	}
	if !errors.Is(c.err, checkout.ErrUnknownItem) {
		return fmt.Errorf("expected unknown item error, got %v", c.err)
	}
	if c.err.Error() != message {
		return fmt.Errorf("expected message %q, got %q", message, c.err.Error())
	}
	return nil
}

func InitializeScenario(ctx *godog.ScenarioContext) {
	tc := &checkoutTestContext{}

	ctx.Before(func(ctx context.Context, sc *godog.Scenario) (context.Context, error) {
		tc.reset()
		return ctx, nil
	})

	ctx.Step(`^the pricing rules:$`, tc.thePricingRules)
	ctx.Step(`^a new checkout$`, tc.aNewCheckout)

	ctx.Step(`^I scan "([^"]*)"$`, tc.iScan)
	ctx.Step(`^I scan "([^"]*)" (\d+) times$`, tc.iScanTimes)

	ctx.Step(`^the total is (\d+)$`, tc.theTotalIs)
	ctx.Step(`^the scan fails with "([^"]*)"$`, tc.theScanFailsWith)
}

func TestFeatures(t *testing.T) {
	suite := godog.TestSuite{
		ScenarioInitializer: InitializeScenario,
		Options: &godog.Options{
			Format:   "pretty",
			Paths:    []string{"features/checkout.feature"},
			TestingT: t,
			Strict:   true,
		},
	}

	if suite.Run() != 0 {
		t.Fatal("non-zero status returned, failed to run feature tests")
	}
}
