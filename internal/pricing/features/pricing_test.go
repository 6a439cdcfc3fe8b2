package features

import (
	"context"
	"fmt"
	"testing"

	"github.com/cucumber/godog"
	"github.com/fjod/foodcart/internal/domain"
	"github.com/fjod/foodcart/internal/pricing"
	"github.com/shopspring/decimal"
)

type pricingTestContext struct {
	items    []domain.CartItem
	subtotal *decimal.Decimal
}

func (c *pricingTestContext) reset() {
	c.items = nil
	c.subtotal = nil
}

func (c *pricingTestContext) anEmptyCart() error {
	c.items = nil
	return nil
}

func (c *pricingTestContext) aBareSubtotalOf(amount string) error {
	sub, err := decimal.NewFromString(amount)
	if err != nil {
		return err
	}
	c.subtotal = &sub
	return nil
}

func (c *pricingTestContext) iAddPricedWithQuantity(id, price string, qty int) error {
	p, err := decimal.NewFromString(price)
	if err != nil {
		return err
	}
	c.items = append(c.items, domain.CartItem{ID: id, Name: id, UnitPrice: p, Quantity: qty})
	return nil
}

func (c *pricingTestContext) breakdown() pricing.Breakdown {
	if c.subtotal != nil {
		return pricing.Breakdown{
			Subtotal:    *c.subtotal,
			DeliveryFee: pricing.DeliveryFee(*c.subtotal),
			Tax:         pricing.Tax(*c.subtotal),
			GrandTotal:  pricing.GrandTotalFor(*c.subtotal),
		}
	}
	return pricing.Price(c.items)
}

func expect(name, want string, got decimal.Decimal) error {
	w, err := decimal.NewFromString(want)
	if err != nil {
		return err
	}
	if !got.Equal(w) {
		return fmt.Errorf("expected %s %s, got %s", name, want, got)
	}
	return nil
}

func (c *pricingTestContext) theSubtotalIs(want string) error {
	return expect("subtotal", want, c.breakdown().Subtotal)
}

func (c *pricingTestContext) theDeliveryFeeIs(want string) error {
	return expect("delivery fee", want, c.breakdown().DeliveryFee)
}

func (c *pricingTestContext) theTaxIs(want string) error {
	return expect("tax", want, c.breakdown().Tax)
}

func (c *pricingTestContext) theGrandTotalIs(want string) error {
	return expect("grand total", want, c.breakdown().GrandTotal)
}

func (c *pricingTestContext) theGrandTotalDisplaysAs(want string) error {
	got := pricing.NewFormatter(pricing.DefaultSymbol).Format(c.breakdown().GrandTotal)
	if got != want {
		return fmt.Errorf("expected display %q, got %q", want, got)
	}
	return nil
}

func InitializeScenario(ctx *godog.ScenarioContext) {
	tc := &pricingTestContext{}

	ctx.Before(func(ctx context.Context, sc *godog.Scenario) (context.Context, error) {
		tc.reset()
		return ctx, nil
	})

	// Given steps
	ctx.Step(`^an empty cart$`, tc.anEmptyCart)
	ctx.Step(`^a bare subtotal of ([\d.]+)$`, tc.aBareSubtotalOf)

	// When steps
	ctx.Step(`^I add "([^"]*)" priced ([\d.]+) with quantity (\d+)$`, tc.iAddPricedWithQuantity)

	// Then steps
	ctx.Step(`^the subtotal is ([\d.]+)$`, tc.theSubtotalIs)
	ctx.Step(`^the delivery fee is ([\d.]+)$`, tc.theDeliveryFeeIs)
	ctx.Step(`^the tax is ([\d.]+)$`, tc.theTaxIs)
	ctx.Step(`^the grand total is ([\d.]+)$`, tc.theGrandTotalIs)
	ctx.Step(`^the grand total displays as "([^"]*)"$`, tc.theGrandTotalDisplaysAs)
}

func TestFeatures(t *testing.T) {
	suite := godog.TestSuite{
		ScenarioInitializer: InitializeScenario,
		Options: &godog.Options{
			Format:   "pretty",
			Paths:    []string{"pricing.feature"},
			TestingT: t,
			Strict:   true,
		},
	}

	if suite.Run() != 0 {
		t.Fatal("non-zero status returned, failed to run feature tests")
	}
}
