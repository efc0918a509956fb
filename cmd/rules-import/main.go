// Command rules-import loads discount rules from a gzipped JSON export
// into the database. The export format is a JSON array of rule objects
// in the loose stored form; malformed entries are skipped, not fatal.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"sync/atomic"

	"github.com/go-faster/errors"
	pgzip "github.com/klauspost/pgzip"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/nazmunsakib/discountkit/internal/domain/rule"
	"github.com/nazmunsakib/discountkit/internal/repository"
)

const importWorkers = 4

// exportedRule mirrors the loose stored rule shape. Sub-fields stay raw
// JSON; the tolerant record decoder handles their inconsistencies.
type exportedRule struct {
	Title           string          `json:"title"`
	Description     string          `json:"description"`
	DiscountType    string          `json:"discount_type"`
	DiscountValue   decimal.Decimal `json:"discount_value"`
	Conditions      json.RawMessage `json:"conditions"`
	Filters         json.RawMessage `json:"filters"`
	BulkRanges      json.RawMessage `json:"bulk_ranges"`
	BulkOperator    string          `json:"bulk_operator"`
	ApplyAsCartRule bool            `json:"apply_as_cart_rule"`
	CartLabel       string          `json:"cart_label"`
	UsageLimit      int             `json:"usage_limit"`
	Priority        int             `json:"priority"`
	Status          string          `json:"status"`
}

func main() {
	var (
		databaseURL string
		rulesFile   string
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&rulesFile, "rules-file", "rules.json.gz", "path to gzipped rules JSON export")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, rulesFile); err != nil {
		slog.Error("rules import failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("rules import completed successfully")
}

func run(ctx context.Context, databaseURL, rulesFile string) error {
	pool, err := repository.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	if err := repository.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	repo := repository.NewRuleRepository(pool)

	f, err := os.Open(rulesFile)
	if err != nil {
		return errors.Wrapf(err, "open %s", rulesFile)
	}
	defer func() { _ = f.Close() }()

	gz, err := pgzip.NewReader(f)
	if err != nil {
		return errors.Wrapf(err, "create gzip reader for %s", rulesFile)
	}
	defer func() { _ = gz.Close() }()

	var imported, skipped atomic.Int64

	rules := make(chan *rule.Rule, importWorkers)
	g, ctx := errgroup.WithContext(ctx)

	for range importWorkers {
		g.Go(func() error {
			for r := range rules {
				if _, err := repo.Save(ctx, r); err != nil {
					return errors.Wrapf(err, "save rule %q", r.Title)
				}
				imported.Add(1)
			}
			return nil
		})
	}

	g.Go(func() error {
		defer close(rules)

		dec := json.NewDecoder(gz)
		if _, err := dec.Token(); err != nil {
			return errors.Wrap(err, "read array start")
		}

		for dec.More() {
			if err := ctx.Err(); err != nil {
				return err
			}

			var exp exportedRule
			if err := dec.Decode(&exp); err != nil {
				return errors.Wrap(err, "decode rule entry")
			}
			if exp.Title == "" {
				skipped.Add(1)
				continue
			}

			rec := rule.Record{
				Title:           exp.Title,
				Description:     exp.Description,
				DiscountType:    exp.DiscountType,
				DiscountValue:   exp.DiscountValue,
				Conditions:      exp.Conditions,
				Filters:         exp.Filters,
				BulkRanges:      exp.BulkRanges,
				BulkOperator:    exp.BulkOperator,
				ApplyAsCartRule: exp.ApplyAsCartRule,
				CartLabel:       exp.CartLabel,
				UsageLimit:      exp.UsageLimit,
				Priority:        exp.Priority,
				Status:          exp.Status,
			}

			select {
			case rules <- rec.Rule():
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}

	slog.Info("import summary",
		slog.Int64("imported", imported.Load()),
		slog.Int64("skipped", skipped.Load()),
	)
	return nil
}
