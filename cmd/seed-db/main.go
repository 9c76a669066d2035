package main

import (
	"context"
	"encoding/json"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/xenking/storefront/internal/domain/auth"
	"github.com/xenking/storefront/internal/domain/catalog"
	"github.com/xenking/storefront/internal/domain/coupon"
	"github.com/xenking/storefront/internal/notify"
	"github.com/xenking/storefront/internal/storage/postgres"
)

type seedFile struct {
	Categories []struct {
		Name        string `json:"name"`
		Description string `json:"description"`
	} `json:"categories"`
	Products []struct {
		Category    string          `json:"category"`
		Name        string          `json:"name"`
		Description string          `json:"description"`
		SKU         string          `json:"sku"`
		Price       decimal.Decimal `json:"price"`
		Stock       int             `json:"stock"`
		Variants    []struct {
			Name  string `json:"name"`
			SKU   string `json:"sku"`
			Stock int    `json:"stock"`
		} `json:"variants"`
	} `json:"products"`
}

type options struct {
	databaseURL   string
	catalogFile   string
	adminEmail    string
	adminPassword string
}

func main() {
	var opts options

	flag.StringVar(&opts.databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&opts.catalogFile, "catalog-file", "db/seed/catalog.json", "path to categories and products JSON file")
	flag.StringVar(&opts.adminEmail, "admin-email", "admin@example.com", "email of the seeded admin account")
	flag.StringVar(&opts.adminPassword, "admin-password", "", "admin password (or STOREFRONT_SEED_ADMIN_PASSWORD env)")
	flag.Parse()

	if opts.databaseURL == "" {
		opts.databaseURL = os.Getenv("DATABASE_URL")
	}
	if opts.databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}
	if opts.adminPassword == "" {
		opts.adminPassword = os.Getenv("STOREFRONT_SEED_ADMIN_PASSWORD")
	}
	if opts.adminPassword == "" {
		slog.Error("admin password is required: set --admin-password or STOREFRONT_SEED_ADMIN_PASSWORD")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, opts); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, opts options) error {
	slog.Info("connecting to database")

	pool, err := postgres.NewPool(ctx, opts.databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	slog.Info("running migrations")

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	db := postgres.New(pool)
	catalogSvc := catalog.NewService(postgres.NewCatalogRepository(db))
	couponSvc := coupon.NewService(db, postgres.NewCouponRepository(db), postgres.NewOrderRepository(db), notify.Nop{})
	authSvc := auth.NewService(postgres.NewUserRepository(db), nil)

	if err := seedCatalog(ctx, catalogSvc, opts.catalogFile); err != nil {
		return errors.Wrap(err, "seed catalog")
	}
	if err := seedCoupons(ctx, couponSvc); err != nil {
		return errors.Wrap(err, "seed coupons")
	}
	if err := seedAdmin(ctx, authSvc, opts.adminEmail, opts.adminPassword); err != nil {
		return errors.Wrap(err, "seed admin")
	}
	return nil
}

func seedCatalog(ctx context.Context, svc *catalog.Service, path string) error {
	slog.Info("reading catalog file", slog.String("path", path))

	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrap(err, "read catalog file")
	}
	var seed seedFile
	if err := json.Unmarshal(data, &seed); err != nil {
		return errors.Wrap(err, "parse catalog JSON")
	}

	existing, err := svc.ListCategories(ctx)
	if err != nil {
		return errors.Wrap(err, "list categories")
	}
	categories := make(map[string]uuid.UUID, len(existing))
	for _, c := range existing {
		categories[c.Name] = c.ID
	}

	for _, c := range seed.Categories {
		if _, ok := categories[c.Name]; ok {
			continue
		}
		created, err := svc.CreateCategory(ctx, nil, c.Name, c.Description)
		if err != nil {
			return errors.Wrapf(err, "create category %s", c.Name)
		}
		categories[c.Name] = created.ID
		slog.Info("created category", slog.String("name", c.Name))
	}

	slog.Info("creating products", slog.Int("count", len(seed.Products)))

	for _, p := range seed.Products {
		in := catalog.ProductInput{
			Name:        p.Name,
			Description: p.Description,
			SKU:         p.SKU,
			Price:       p.Price,
			Stock:       p.Stock,
		}
		if id, ok := categories[p.Category]; ok {
			in.CategoryID = &id
		}
		for _, v := range p.Variants {
			in.Variants = append(in.Variants, catalog.VariantInput{Name: v.Name, SKU: v.SKU, Stock: v.Stock})
		}

		created, err := svc.CreateProduct(ctx, in)
		switch {
		case errors.Is(err, catalog.ErrDuplicate):
			slog.Info("product exists, skipping", slog.String("sku", p.SKU))
			continue
		case err != nil:
			return errors.Wrapf(err, "create product %s", p.SKU)
		}
		slog.Info("created product", slog.String("id", created.ID.String()), slog.String("sku", p.SKU))
	}
	return nil
}

func seedCoupons(ctx context.Context, svc *coupon.Service) error {
	slog.Info("seeding coupons")

	now := time.Now().UTC().Truncate(time.Hour)
	limit := 100
	coupons := []coupon.CreateInput{
		{
			Code:        "WELCOME10",
			Description: "Welcome discount: 10% off",
			Type:        coupon.DiscountPercentage,
			Value:       decimal.NewFromInt(10),
			StartsAt:    now,
			EndsAt:      now.AddDate(0, 0, 30),
		},
		{
			Code:        "SAVE20",
			Description: "20 off orders above 100",
			Type:        coupon.DiscountFixed,
			Value:       decimal.NewFromInt(20),
			MinPurchase: decimal.NewNullDecimal(decimal.NewFromInt(100)),
			UsageLimit:  &limit,
			StartsAt:    now,
			EndsAt:      now.AddDate(0, 3, 0),
		},
	}

	for _, in := range coupons {
		_, err := svc.Create(ctx, in)
		switch {
		case errors.Is(err, coupon.ErrCodeTaken):
			slog.Info("coupon exists, skipping", slog.String("code", in.Code))
			continue
		case err != nil:
			return errors.Wrapf(err, "create coupon %s", in.Code)
		}
		slog.Info("created coupon", slog.String("code", in.Code), slog.String("description", in.Description))
	}
	return nil
}

func seedAdmin(ctx context.Context, svc *auth.Service, email, password string) error {
	u, err := svc.CreateAdmin(ctx, auth.RegisterInput{
		Email:     email,
		Password:  password,
		FirstName: "Admin",
		LastName:  "User",
	})
	switch {
	case errors.Is(err, auth.ErrEmailTaken):
		slog.Info("admin exists, skipping", slog.String("email", email))
		return nil
	case err != nil:
		return err
	}
	slog.Info("created admin", slog.String("id", u.ID.String()), slog.String("email", u.Email))
	return nil
}
