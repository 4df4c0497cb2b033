package checkout

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/checkout-pricing/internal/pricing"
)

func fixtureCatalog() *pricing.Catalog {
	return pricing.MustCatalog(
		pricing.Rule{Name: "Magical Sword", Price: 350},
		pricing.Rule{Name: "Ice Staff", Price: 330},
		pricing.Rule{Name: "Golden Apple", Price: 20, Discount: &pricing.Discount{Quantity: 5, Price: 75}},
		pricing.Rule{Name: "Strength Potion", Price: 80, Discount: &pricing.Discount{Quantity: 3, Price: 210}},
	)
}

func repeat(name string, n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = name
	}
	return out
}

func TestScanScenarios(t *testing.T) {
	cases := []struct {
		name  string
		items []string
		want  pricing.Money
	}{
		{"one item", []string{"Magical Sword"}, 350},
		{"multiple different items", []string{"Magical Sword", "Ice Staff"}, 680},
		{"discount", repeat("Strength Potion", 3), 210},
		{"discount with one more discount item", repeat("Strength Potion", 4), 290},
		{"discount with one non discount item", append([]string{"Ice Staff"}, repeat("Strength Potion", 3)...), 540},
		{"two discounts from different items", append(repeat("Golden Apple", 5), repeat("Strength Potion", 3)...), 285},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := New(fixtureCatalog())
			require.NoError(t, c.ScanAll(tc.items...))
			require.Equal(t, tc.want, c.Total())
		})
	}
}

func TestScanUnknownItem(t *testing.T) {
	c := New(fixtureCatalog())
	require.NoError(t, c.ScanAll("Strength Potion", "Strength Potion"))
	before := c.Total()

	err := c.Scan("The Bag of Holding")
	require.ErrorIs(t, err, ErrUnknownItem)
	require.EqualError(t, err, "no pricing rule was initialized for the given item name")

	var unknown *UnknownItemError
	require.True(t, errors.As(err, &unknown))
	require.Equal(t, "The Bag of Holding", unknown.Name)

	require.Equal(t, before, c.Total())
	require.Equal(t, 2, c.Scanned())
	require.Equal(t, 2, c.Progress("Strength Potion"))

	// The pending bundle still completes after the failed scan.
	require.NoError(t, c.Scan("Strength Potion"))
	require.Equal(t, pricing.Money(210), c.Total())
}

func TestTotalBeforeAnyScan(t *testing.T) {
	require.Zero(t, New(fixtureCatalog()).Total())
}

func TestTotalIsCurrentAfterEveryScan(t *testing.T) {
	c := New(fixtureCatalog())
	want := []pricing.Money{80, 160, 210, 290, 370, 420}
	for i, expected := range want {
		require.NoError(t, c.Scan("Strength Potion"))
		require.Equal(t, expected, c.Total(), "after scan %d", i+1)
	}
}

func TestProgressCycles(t *testing.T) {
	c := New(fixtureCatalog())
	require.Zero(t, c.Progress("Golden Apple"))
	for i := 1; i <= 12; i++ {
		require.NoError(t, c.Scan("Golden Apple"))
		require.Equal(t, i%5, c.Progress("Golden Apple"))
	}
	require.Zero(t, c.Progress("Magical Sword"))
}

func TestBundleArithmetic(t *testing.T) {
	rule := pricing.Rule{Name: "Strength Potion", Price: 80, Discount: &pricing.Discount{Quantity: 3, Price: 210}}
	k := rule.Discount.Quantity
	for r := 0; r < k; r++ {
		c := New(pricing.MustCatalog(rule))
		require.NoError(t, c.ScanAll(repeat(rule.Name, k+r)...))
		require.Equal(t, rule.Discount.Price+pricing.Money(r)*rule.Price, c.Total())
	}
	c := New(pricing.MustCatalog(rule))
	require.NoError(t, c.ScanAll(repeat(rule.Name, 2*k)...))
	require.Equal(t, 2*rule.Discount.Price, c.Total())
}

func TestNonDiscountedScansAreCommutative(t *testing.T) {
	forward := New(fixtureCatalog())
	require.NoError(t, forward.ScanAll("Magical Sword", "Ice Staff", "Ice Staff"))
	backward := New(fixtureCatalog())
	require.NoError(t, backward.ScanAll("Ice Staff", "Ice Staff", "Magical Sword"))
	require.Equal(t, pricing.Money(1010), forward.Total())
	require.Equal(t, forward.Total(), backward.Total())
}

func TestDiscountProgressIsIndependentPerItem(t *testing.T) {
	c := New(fixtureCatalog())
	require.NoError(t, c.ScanAll("Strength Potion", "Ice Staff", "Strength Potion", "Golden Apple", "Strength Potion"))
	require.Equal(t, pricing.Money(330+210+20), c.Total())
	require.Zero(t, c.Progress("Strength Potion"))
	require.Equal(t, 1, c.Progress("Golden Apple"))
}

func TestSingleUnitBundle(t *testing.T) {
	c := New(pricing.MustCatalog(pricing.Rule{Name: "Coupon Item", Price: 100, Discount: &pricing.Discount{Quantity: 1, Price: 60}}))
	require.NoError(t, c.ScanAll("Coupon Item", "Coupon Item"))
	require.Equal(t, pricing.Money(120), c.Total())
	require.Zero(t, c.Progress("Coupon Item"))
}

func TestScanAllStopsAtFirstError(t *testing.T) {
	c := New(fixtureCatalog())
	err := c.ScanAll("Ice Staff", "Unknown", "Magical Sword")
	require.ErrorIs(t, err, ErrUnknownItem)
	require.Equal(t, pricing.Money(330), c.Total())
	require.Equal(t, 1, c.Scanned())
}

func TestNewFromRules(t *testing.T) {
	c, err := NewFromRules([]pricing.Rule{{Name: "Ice Staff", Price: 330}})
	require.NoError(t, err)
	require.NoError(t, c.Scan("Ice Staff"))
	require.Equal(t, pricing.Money(330), c.Total())

	_, err = NewFromRules([]pricing.Rule{{Name: "a"}, {Name: "a"}})
	require.ErrorIs(t, err, pricing.ErrDuplicateRule)
}

func TestCheckoutsShareCatalogIndependently(t *testing.T) {
	catalog := fixtureCatalog()
	first := New(catalog)
	second := New(catalog)
	require.NoError(t, first.ScanAll("Strength Potion", "Strength Potion"))
	require.NoError(t, second.Scan("Strength Potion"))
	require.Equal(t, 2, first.Progress("Strength Potion"))
	require.Equal(t, 1, second.Progress("Strength Potion"))
}

func TestQuoteMatchesRuleCost(t *testing.T) {
	catalog := fixtureCatalog()
	basket := append(repeat("Golden Apple", 7), repeat("Strength Potion", 4)...)
	basket = append(basket, "Magical Sword")

	total, err := Quote(catalog, basket)
	require.NoError(t, err)

	apple, _ := catalog.Lookup("Golden Apple")
	potion, _ := catalog.Lookup("Strength Potion")
	sword, _ := catalog.Lookup("Magical Sword")
	require.Equal(t, apple.Cost(7)+potion.Cost(4)+sword.Cost(1), total)

	_, err = Quote(catalog, []string{"Unknown"})
	require.ErrorIs(t, err, ErrUnknownItem)
}

type recordingObserver struct {
	scanned  []pricing.Money
	bundles  []string
	rejected []string
}

func (o *recordingObserver) Scanned(_ string, total pricing.Money) {
	o.scanned = append(o.scanned, total)
}
func (o *recordingObserver) BundleCompleted(name string) { o.bundles = append(o.bundles, name) }
func (o *recordingObserver) Rejected(name string)        { o.rejected = append(o.rejected, name) }

func TestObserverNotifications(t *testing.T) {
	obs := &recordingObserver{}
	c := New(fixtureCatalog(), WithObserver(obs))
	require.NoError(t, c.ScanAll(repeat("Strength Potion", 3)...))
	require.Error(t, c.Scan("Unknown"))

	require.Equal(t, []pricing.Money{80, 160, 210}, obs.scanned)
	require.Equal(t, []string{"Strength Potion"}, obs.bundles)
	require.Equal(t, []string{"Unknown"}, obs.rejected)
}
