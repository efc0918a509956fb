package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/nazmunsakib/discountkit/internal/domain/auth"
	"github.com/nazmunsakib/discountkit/internal/domain/rule"
	"github.com/nazmunsakib/discountkit/internal/domain/settings"
	"github.com/nazmunsakib/discountkit/internal/repository"
)

const (
	upsertProductSQL = `INSERT INTO products (id, name, sku, regular_price, sale_price)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name, sku = EXCLUDED.sku,
			regular_price = EXCLUDED.regular_price, sale_price = EXCLUDED.sale_price`

	upsertAPIKeySQL = `INSERT INTO api_keys (name, key_hash, active)
		VALUES ($1, $2, TRUE)
		ON CONFLICT (key_hash) DO UPDATE SET name = EXCLUDED.name, active = TRUE`
)

type seedProduct struct {
	id           int64
	name         string
	sku          string
	regularPrice string
	salePrice    string
}

var sampleProducts = []seedProduct{
	{1, "Classic Tee", "TEE-001", "25.00", ""},
	{2, "Hooded Sweatshirt", "HOOD-001", "55.00", "49.00"},
	{3, "Canvas Tote", "TOTE-001", "18.00", ""},
	{4, "Enamel Mug", "MUG-001", "14.00", ""},
	{5, "Wool Beanie", "BEAN-001", "22.00", ""},
}

func main() {
	var (
		databaseURL  string
		apiKey       string
		apiKeyPepper string
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&apiKey, "api-key", "", "API key to seed (or DISCOUNTKIT_SEED_API_KEY env)")
	flag.StringVar(&apiKeyPepper, "api-key-pepper", "", "HMAC pepper for API key hashing (or DISCOUNTKIT_API_KEY_PEPPER env)")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}
	if apiKey == "" {
		apiKey = os.Getenv("DISCOUNTKIT_SEED_API_KEY")
	}
	if apiKey == "" {
		slog.Error("API key is required: set --api-key or DISCOUNTKIT_SEED_API_KEY")
		os.Exit(1)
	}
	if apiKeyPepper == "" {
		apiKeyPepper = os.Getenv("DISCOUNTKIT_API_KEY_PEPPER")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, apiKey, apiKeyPepper); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, databaseURL, apiKey, pepper string) error {
	slog.Info("connecting to database")

	pool, err := repository.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	slog.Info("running migrations")

	if err := repository.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	if err := seedSettings(ctx, pool); err != nil {
		return errors.Wrap(err, "seed settings")
	}
	if err := seedProducts(ctx, pool); err != nil {
		return errors.Wrap(err, "seed products")
	}
	if err := seedRules(ctx, pool); err != nil {
		return errors.Wrap(err, "seed rules")
	}
	if err := seedAPIKey(ctx, pool, apiKey, pepper); err != nil {
		return errors.Wrap(err, "seed api key")
	}

	return nil
}

func seedSettings(ctx context.Context, pool *pgxpool.Pool) error {
	slog.Info("seeding default settings")

	store := repository.NewSettingsRepository(pool)
	for k, v := range settings.Defaults().Map() {
		if err := store.Set(ctx, k, v); err != nil {
			return errors.Wrapf(err, "set %s", k)
		}
	}
	return nil
}

func seedProducts(ctx context.Context, pool *pgxpool.Pool) error {
	slog.Info("upserting products", slog.Int("count", len(sampleProducts)))

	for _, p := range sampleProducts {
		sale := decimal.Zero
		if p.salePrice != "" {
			sale = decimal.RequireFromString(p.salePrice)
		}
		_, err := pool.Exec(ctx, upsertProductSQL,
			p.id, p.name, p.sku, decimal.RequireFromString(p.regularPrice), sale,
		)
		if err != nil {
			return errors.Wrapf(err, "upsert product %d", p.id)
		}
		slog.Info("upserted product", slog.Int64("id", p.id), slog.String("name", p.name))
	}
	return nil
}

func seedRules(ctx context.Context, pool *pgxpool.Pool) error {
	repo := repository.NewRuleRepository(pool)

	existing, err := repo.List(ctx)
	if err != nil {
		return errors.Wrap(err, "list rules")
	}
	if len(existing) > 0 {
		slog.Info("rules already present, skipping", slog.Int("count", len(existing)))
		return nil
	}

	rules := []*rule.Rule{
		{
			Title:    "Storewide 10% off",
			Shape:    rule.FlatPercentage{Value: decimal.NewFromInt(10)},
			Filter:   rule.Filter{ApplyTo: rule.ApplyAllProducts},
			Priority: 10,
			Status:   rule.StatusActive,
		},
		{
			Title: "Tee volume pricing",
			Shape: rule.BulkTiered{
				Operator: rule.OperatorCumulative,
				Ranges: []rule.BulkRange{
					{Min: 3, Max: 5, DiscountType: rule.DiscountPercentage, DiscountValue: decimal.NewFromInt(15), Label: "3-5"},
					{Min: 6, Max: 0, DiscountType: rule.DiscountPercentage, DiscountValue: decimal.NewFromInt(25), Label: "6+"},
				},
			},
			Filter: rule.Filter{
				ApplyTo:    rule.ApplySpecificProducts,
				Method:     rule.MethodInclude,
				ProductIDs: []int64{1},
			},
			Priority: 20,
			Status:   rule.StatusActive,
		},
		{
			Title: "Big cart credit",
			Shape: rule.CartAdjustment{
				Type:  rule.DiscountFixed,
				Value: decimal.NewFromInt(5),
				Label: "Big cart credit",
			},
			Conditions: rule.Conditions{MinSubtotal: decimal.NewFromInt(100)},
			Filter:     rule.Filter{ApplyTo: rule.ApplyAllProducts},
			Priority:   30,
			Status:     rule.StatusActive,
		},
	}

	slog.Info("seeding sample rules", slog.Int("count", len(rules)))

	for _, r := range rules {
		id, err := repo.Save(ctx, r)
		if err != nil {
			return errors.Wrapf(err, "save rule %q", r.Title)
		}
		slog.Info("seeded rule", slog.Int64("id", id), slog.String("title", r.Title))
	}
	return nil
}

func seedAPIKey(ctx context.Context, pool *pgxpool.Pool, apiKey, pepper string) error {
	slog.Info("seeding default API key")

	hash := auth.HashKey(pepper, apiKey)
	if _, err := pool.Exec(ctx, upsertAPIKeySQL, "Default admin key", hash); err != nil {
		return errors.Wrap(err, "upsert default API key")
	}

	slog.Info("upserted API key", slog.String("name", "Default admin key"))
	return nil
}
