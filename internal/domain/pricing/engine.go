package pricing

import (
	"context"
	"sync"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/nazmunsakib/discountkit/internal/domain/product"
	"github.com/nazmunsakib/discountkit/internal/domain/rule"
	"github.com/nazmunsakib/discountkit/internal/domain/settings"
)

// saleIndexTTL bounds how stale the sale bloom index may get before a
// request rebuilds it from the active rule set.
const saleIndexTTL = time.Minute

// Engine evaluates discount rules against carts and products. It holds
// no mutable rule state itself; every evaluation loads the active rule
// set and a settings snapshot, so concurrent evaluations are safe.
type Engine struct {
	rules    rule.Repository
	products product.Repository
	settings *settings.Service
	now      func() time.Time

	mu             sync.Mutex
	saleIdx        *saleIndex
	saleIdxExpires time.Time
}

func NewEngine(rules rule.Repository, products product.Repository, svc *settings.Service) *Engine {
	return &Engine{
		rules:    rules,
		products: products,
		settings: svc,
		now:      time.Now,
	}
}

// CalculateCartDiscounts evaluates all active rules against a cart and
// returns the discount summary. Product-price rules compete under the
// configured resolution method; cart-adjustment rules always stack on
// top of whatever that resolution produced.
func (e *Engine) CalculateCartDiscounts(ctx context.Context, items []Item) ([]CartDiscount, error) {
	if len(items) == 0 {
		return nil, nil
	}

	cfg, err := e.settings.Current(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "load settings")
	}
	rules, err := e.rules.ActiveRules(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "load active rules")
	}

	now := e.now()
	var candidates, adjustments []RuleDiscount
	for _, r := range rules {
		if !applicable(r, now, items) {
			continue
		}
		amount := cartDiscount(r, items)
		if !amount.IsPositive() {
			continue
		}
		rd := RuleDiscount{Rule: r, Amount: amount}
		if _, cart := r.Shape.(rule.CartAdjustment); cart {
			adjustments = append(adjustments, rd)
		} else {
			candidates = append(candidates, rd)
		}
	}

	applied := Resolve(candidates, cfg.ApplyDiscountTo)
	applied = append(applied, adjustments...)

	out := make([]CartDiscount, 0, len(applied))
	for _, rd := range applied {
		out = append(out, CartDiscount{
			RuleID:       rd.Rule.ID,
			RuleTitle:    rd.Rule.Title,
			DiscountType: shapeLabel(rd.Rule.Shape),
			Amount:       rd.Amount.Round(2),
		})
	}
	return out, nil
}

// ComputeCartFees returns the cart-level adjustment lines for a cart.
// Every eligible cart-adjustment rule contributes its own line; fees do
// not go through conflict resolution.
func (e *Engine) ComputeCartFees(ctx context.Context, items []Item) ([]Fee, error) {
	if len(items) == 0 {
		return nil, nil
	}

	rules, err := e.rules.ActiveRules(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "load active rules")
	}

	now := e.now()
	var fees []Fee
	for _, r := range rules {
		if _, cart := r.Shape.(rule.CartAdjustment); !cart {
			continue
		}
		if !applicable(r, now, items) {
			continue
		}
		if !matchingSubtotal(r.Filter, items).IsPositive() {
			continue
		}
		amount := cartDiscount(r, items).Round(2)
		if !amount.IsPositive() {
			continue
		}
		fees = append(fees, Fee{
			RuleID: r.ID,
			Label:  r.CartLabel(),
			Amount: amount,
		})
	}
	return fees, nil
}

// PriceLineItems resolves base prices from the catalog and reprices
// every cart line. Lines covered by a cart-adjustment rule keep their
// base price: their discount arrives as a cart fee instead, and
// repricing them too would apply it twice.
func (e *Engine) PriceLineItems(ctx context.Context, lines []Line) ([]PricedLine, error) {
	if len(lines) == 0 {
		return nil, nil
	}

	cfg, err := e.settings.Current(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "load settings")
	}
	rules, err := e.rules.ActiveRules(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "load active rules")
	}

	ids := make([]int64, 0, len(lines))
	for _, l := range lines {
		ids = append(ids, l.ProductID)
	}
	prods, err := e.products.GetByIDs(ctx, ids)
	if err != nil {
		return nil, errors.Wrap(err, "load products")
	}
	byID := make(map[int64]product.Product, len(prods))
	for _, p := range prods {
		byID[p.ID] = p
	}

	now := e.now()

	// Cart items at base prices, so cart-level conditions and
	// cumulative tiers see the full cart.
	cart := make([]Item, 0, len(lines))
	for _, l := range lines {
		p, ok := byID[l.ProductID]
		if !ok {
			return nil, errors.Wrapf(product.ErrNotFound, "product %d", l.ProductID)
		}
		base := p.BasePrice(cfg.CalculateFrom)
		cart = append(cart, Item{
			ProductID: l.ProductID,
			Quantity:  l.Quantity,
			LineTotal: base.Mul(decimal.NewFromInt(int64(l.Quantity))),
		})
	}

	out := make([]PricedLine, 0, len(lines))
	for i, l := range lines {
		base := byID[l.ProductID].BasePrice(cfg.CalculateFrom)
		unit := base
		if !e.coveredByCartRule(rules, now, cart, l.ProductID) {
			unit = e.discountedUnitPrice(rules, cfg, now, l.ProductID, base, cart[i].Quantity, cart)
		}
		out = append(out, PricedLine{
			ProductID: l.ProductID,
			Quantity:  l.Quantity,
			BasePrice: base.Round(2),
			UnitPrice: unit.Round(2),
		})
	}
	return out, nil
}

// ProductDiscountPrice returns the discounted unit price for a single
// product outside any cart, e.g. for catalog display. Cumulative bulk
// tiers fall back to the product's own quantity here.
func (e *Engine) ProductDiscountPrice(ctx context.Context, productID int64, qty int) (decimal.Decimal, error) {
	cfg, err := e.settings.Current(ctx)
	if err != nil {
		return decimal.Zero, errors.Wrap(err, "load settings")
	}
	rules, err := e.rules.ActiveRules(ctx)
	if err != nil {
		return decimal.Zero, errors.Wrap(err, "load active rules")
	}
	p, err := e.products.GetByID(ctx, productID)
	if err != nil {
		return decimal.Zero, errors.Wrapf(err, "product %d", productID)
	}

	base := p.BasePrice(cfg.CalculateFrom)
	unit := e.discountedUnitPrice(rules, cfg, e.now(), productID, base, qty, nil)
	return unit.Round(2), nil
}

// discountedUnitPrice runs the per-product pipeline: match, compute,
// resolve, then subtract the resolved total from the base price once.
// Under "all" every surviving rule's amount contributes to that total.
func (e *Engine) discountedUnitPrice(rules []*rule.Rule, cfg settings.Settings, now time.Time, productID int64, base decimal.Decimal, qty int, cart []Item) decimal.Decimal {
	var candidates []RuleDiscount
	for _, r := range rules {
		if _, cartRule := r.Shape.(rule.CartAdjustment); cartRule {
			continue
		}
		if !productApplicable(r, now, productID) {
			continue
		}
		amount := productDiscount(r, base, qty, cart)
		if !amount.IsPositive() {
			continue
		}
		candidates = append(candidates, RuleDiscount{Rule: r, Amount: amount})
	}
	if len(candidates) == 0 {
		return base
	}

	total := decimal.Zero
	for _, rd := range Resolve(candidates, cfg.ApplyDiscountTo) {
		total = total.Add(rd.Amount)
	}
	return floorAtZero(base.Sub(total))
}

// coveredByCartRule reports whether any eligible cart-adjustment rule's
// filter matches the product.
func (e *Engine) coveredByCartRule(rules []*rule.Rule, now time.Time, cart []Item, productID int64) bool {
	for _, r := range rules {
		if _, cartRule := r.Shape.(rule.CartAdjustment); !cartRule {
			continue
		}
		if applicable(r, now, cart) && r.Filter.MatchesProduct(productID) {
			return true
		}
	}
	return false
}

// IsProductOnSale reports whether the host should treat the product as
// discounted, honoring the configured badge mode. A bloom index over
// include-scoped rule product ids answers definite negatives without
// walking the rule set.
func (e *Engine) IsProductOnSale(ctx context.Context, productID int64) (bool, error) {
	cfg, err := e.settings.Current(ctx)
	if err != nil {
		return false, errors.Wrap(err, "load settings")
	}
	if cfg.ShowSaleBadge == settings.BadgeDisabled {
		return false, nil
	}

	idx, rules, err := e.loadSaleIndex(ctx)
	if err != nil {
		return false, err
	}
	if !idx.MayMatch(productID) {
		return false, nil
	}

	now := e.now()
	for _, r := range rules {
		if _, cartRule := r.Shape.(rule.CartAdjustment); cartRule {
			continue
		}
		if cfg.ShowSaleBadge == settings.BadgeOnAnyRule {
			if r.Filter.MatchesProduct(productID) {
				return true, nil
			}
			continue
		}
		if productApplicable(r, now, productID) {
			return true, nil
		}
	}
	return false, nil
}

// loadSaleIndex returns the cached bloom index, rebuilding it together
// with a fresh rule load once the TTL lapses.
func (e *Engine) loadSaleIndex(ctx context.Context) (*saleIndex, []*rule.Rule, error) {
	rules, err := e.rules.ActiveRules(ctx)
	if err != nil {
		return nil, nil, errors.Wrap(err, "load active rules")
	}

	now := e.now()
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.saleIdx == nil || now.After(e.saleIdxExpires) {
		e.saleIdx = buildSaleIndex(rules)
		e.saleIdxExpires = now.Add(saleIndexTTL)
	}
	return e.saleIdx, rules, nil
}

// InvalidateSaleIndex drops the cached bloom index. Called after rule
// writes so storefront badge checks pick up the change immediately.
func (e *Engine) InvalidateSaleIndex() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.saleIdx = nil
}

// BulkPricingTable returns the quantity tier table for the highest
// priority bulk rule covering the product, or nil when no bulk rule
// applies.
func (e *Engine) BulkPricingTable(ctx context.Context, productID int64) (*BulkTable, error) {
	cfg, err := e.settings.Current(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "load settings")
	}
	if !cfg.ShowBulkTable {
		return nil, nil
	}
	rules, err := e.rules.ActiveRules(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "load active rules")
	}

	now := e.now()
	for _, r := range rules {
		bulk, ok := r.Shape.(rule.BulkTiered)
		if !ok || !productApplicable(r, now, productID) {
			continue
		}
		p, err := e.products.GetByID(ctx, productID)
		if err != nil {
			return nil, errors.Wrapf(err, "product %d", productID)
		}
		return &BulkTable{
			RuleTitle: r.Title,
			BasePrice: p.BasePrice(cfg.CalculateFrom).Round(2),
			Ranges:    bulk.Ranges,
		}, nil
	}
	return nil, nil
}

// OnOrderCompleted records rule usage for a completed order. Rules
// reported more than once for the same order count a single use; their
// discounts are summed into one audit record.
func (e *Engine) OnOrderCompleted(ctx context.Context, orderID string, applied []AppliedRule) error {
	totals := make(map[int64]decimal.Decimal, len(applied))
	var order []int64
	for _, a := range applied {
		if _, ok := totals[a.RuleID]; !ok {
			order = append(order, a.RuleID)
		}
		totals[a.RuleID] = totals[a.RuleID].Add(a.Discount)
	}

	for _, id := range order {
		if err := e.rules.IncrementUsage(ctx, id); err != nil {
			return errors.Wrapf(err, "increment usage for rule %d", id)
		}
		u := rule.Usage{RuleID: id, OrderID: orderID, Discount: totals[id].Round(2)}
		if err := e.rules.RecordUsage(ctx, u); err != nil {
			return errors.Wrapf(err, "record usage for rule %d", id)
		}
	}
	return nil
}
