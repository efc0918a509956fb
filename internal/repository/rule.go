package repository

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nazmunsakib/discountkit/internal/domain/rule"
)

const (
	ruleColumns = `id, title, description, discount_type, discount_value,
		conditions, filters, bulk_ranges, bulk_operator,
		apply_as_cart_rule, cart_label, usage_limit, usage_count, priority, status`

	activeRulesSQL = `SELECT ` + ruleColumns + ` FROM rules
		WHERE status = 'active' AND (usage_limit = 0 OR usage_count < usage_limit)
		ORDER BY priority, id`

	listRulesSQL = `SELECT ` + ruleColumns + ` FROM rules ORDER BY priority, id`

	getRuleSQL = `SELECT ` + ruleColumns + ` FROM rules WHERE id = $1`

	insertRuleSQL = `INSERT INTO rules (title, description, discount_type, discount_value,
		conditions, filters, bulk_ranges, bulk_operator,
		apply_as_cart_rule, cart_label, usage_limit, usage_count, priority, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING id`

	// usage_count is deliberately absent: only incrementUsageSQL moves
	// the counter once a rule exists.
	updateRuleSQL = `UPDATE rules SET title = $2, description = $3, discount_type = $4,
		discount_value = $5, conditions = $6, filters = $7, bulk_ranges = $8,
		bulk_operator = $9, apply_as_cart_rule = $10, cart_label = $11,
		usage_limit = $12, priority = $13, status = $14,
		updated_at = now()
		WHERE id = $1`

	deleteRuleSQL = `DELETE FROM rules WHERE id = $1`

	incrementUsageSQL = `UPDATE rules SET usage_count = usage_count + 1, updated_at = now()
		WHERE id = $1`

	insertUsageSQL = `INSERT INTO rule_usage (id, rule_id, order_id, discount)
		VALUES ($1, $2, $3, $4)`
)

var _ rule.Repository = (*RuleRepository)(nil)

// RuleRepository implements rule.Repository backed by PostgreSQL.
type RuleRepository struct {
	pool *pgxpool.Pool
}

// NewRuleRepository returns a RuleRepository that uses the given pool.
func NewRuleRepository(pool *pgxpool.Pool) *RuleRepository {
	return &RuleRepository{pool: pool}
}

// ActiveRules returns active rules with remaining usage, ordered by
// ascending priority.
func (r *RuleRepository) ActiveRules(ctx context.Context) ([]*rule.Rule, error) {
	rows, err := r.pool.Query(ctx, activeRulesSQL)
	if err != nil {
		return nil, fmt.Errorf("listing active rules: %w", err)
	}
	return pgx.CollectRows(rows, scanRule)
}

// List returns every rule regardless of status, ordered by priority.
func (r *RuleRepository) List(ctx context.Context) ([]*rule.Rule, error) {
	rows, err := r.pool.Query(ctx, listRulesSQL)
	if err != nil {
		return nil, fmt.Errorf("listing rules: %w", err)
	}
	return pgx.CollectRows(rows, scanRule)
}

// Get returns a single rule by its identifier.
func (r *RuleRepository) Get(ctx context.Context, id int64) (*rule.Rule, error) {
	rows, err := r.pool.Query(ctx, getRuleSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting rule %d: %w", id, err)
	}

	ru, err := pgx.CollectExactlyOneRow(rows, scanRule)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, rule.ErrNotFound
		}
		return nil, fmt.Errorf("getting rule %d: %w", id, err)
	}
	return ru, nil
}

// Save inserts the rule when its ID is zero and updates it otherwise,
// returning the rule's identifier.
func (r *RuleRepository) Save(ctx context.Context, ru *rule.Rule) (int64, error) {
	rec := rule.MakeRecord(ru)

	if rec.ID == 0 {
		var id int64
		err := r.pool.QueryRow(ctx, insertRuleSQL,
			rec.Title, rec.Description, rec.DiscountType, rec.DiscountValue,
			rec.Conditions, rec.Filters, rec.BulkRanges, rec.BulkOperator,
			rec.ApplyAsCartRule, rec.CartLabel, rec.UsageLimit, rec.UsageCount,
			rec.Priority, rec.Status,
		).Scan(&id)
		if err != nil {
			return 0, fmt.Errorf("inserting rule: %w", err)
		}
		return id, nil
	}

	tag, err := r.pool.Exec(ctx, updateRuleSQL,
		rec.ID, rec.Title, rec.Description, rec.DiscountType, rec.DiscountValue,
		rec.Conditions, rec.Filters, rec.BulkRanges, rec.BulkOperator,
		rec.ApplyAsCartRule, rec.CartLabel, rec.UsageLimit,
		rec.Priority, rec.Status,
	)
	if err != nil {
		return 0, fmt.Errorf("updating rule %d: %w", rec.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return 0, rule.ErrNotFound
	}
	return rec.ID, nil
}

// Delete removes a rule.
func (r *RuleRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, deleteRuleSQL, id)
	if err != nil {
		return fmt.Errorf("deleting rule %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return rule.ErrNotFound
	}
	return nil
}

// IncrementUsage bumps the rule's usage counter atomically in the
// database, so concurrent order completions cannot lose counts.
func (r *RuleRepository) IncrementUsage(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, incrementUsageSQL, id)
	if err != nil {
		return fmt.Errorf("incrementing usage for rule %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return rule.ErrNotFound
	}
	return nil
}

// RecordUsage appends one audit row for a rule applied to an order.
func (r *RuleRepository) RecordUsage(ctx context.Context, u rule.Usage) error {
	_, err := r.pool.Exec(ctx, insertUsageSQL,
		uuid.NewString(), u.RuleID, u.OrderID, u.Discount,
	)
	if err != nil {
		return fmt.Errorf("recording usage for rule %d: %w", u.RuleID, err)
	}
	return nil
}

func scanRule(row pgx.CollectableRow) (*rule.Rule, error) {
	var rec rule.Record
	err := row.Scan(
		&rec.ID, &rec.Title, &rec.Description, &rec.DiscountType, &rec.DiscountValue,
		&rec.Conditions, &rec.Filters, &rec.BulkRanges, &rec.BulkOperator,
		&rec.ApplyAsCartRule, &rec.CartLabel, &rec.UsageLimit, &rec.UsageCount,
		&rec.Priority, &rec.Status,
	)
	if err != nil {
		return nil, err
	}
	return rec.Rule(), nil
}
