// Command coupon-import bulk-loads coupons from gzip-compressed CSV files.
//
// Every file holds records of the form
//
//	code,type,value,min,max,limit,starts,ends
//
// Codes that occur more than once across all files are ambiguous and are
// skipped and reported. Codes that already exist in the database are left
// untouched.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/go-faster/errors"

	"github.com/xenking/storefront/internal/domain/coupon"
	"github.com/xenking/storefront/internal/storage/postgres"
)

type options struct {
	databaseURL string
	pattern     string
	expected    uint
	fpr         float64
	batchSize   int
	dryRun      bool
}

// importer stores coupons, skipping existing codes, and returns the number
// inserted.
type importer interface {
	Import(ctx context.Context, coupons []coupon.Coupon) (int64, error)
}

type dryRun struct{}

func (dryRun) Import(_ context.Context, coupons []coupon.Coupon) (int64, error) {
	return int64(len(coupons)), nil
}

func main() {
	var opts options

	flag.StringVar(&opts.databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&opts.pattern, "files", "data/coupons*.csv.gz", "glob of gzip-compressed CSV files")
	flag.UintVar(&opts.expected, "expected", 1_000_000, "expected number of codes per file, sizes the bloom filters")
	flag.Float64Var(&opts.fpr, "fpr", 0.001, "bloom filter false positive rate")
	flag.IntVar(&opts.batchSize, "batch", 1000, "coupons per insert batch")
	flag.BoolVar(&opts.dryRun, "dry-run", false, "parse and deduplicate without writing")
	flag.Parse()

	if opts.databaseURL == "" {
		opts.databaseURL = os.Getenv("DATABASE_URL")
	}
	if opts.databaseURL == "" && !opts.dryRun {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, opts); err != nil {
		slog.Error("coupon import failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("coupon import completed successfully")
}

func run(ctx context.Context, opts options) error {
	files, err := filepath.Glob(opts.pattern)
	if err != nil {
		return errors.Wrap(err, "match files")
	}
	if len(files) == 0 {
		return errors.Errorf("no files match %q", opts.pattern)
	}
	slices.Sort(files)

	slog.Info("finding duplicate candidates", slog.Int("files", len(files)))

	suspects, err := findSuspects(ctx, files, opts.expected, opts.fpr)
	if err != nil {
		return errors.Wrap(err, "find suspects")
	}

	var sink importer = dryRun{}
	if !opts.dryRun {
		slog.Info("connecting to database")

		pool, err := postgres.NewPool(ctx, opts.databaseURL)
		if err != nil {
			return errors.Wrap(err, "connect to database")
		}
		defer pool.Close()

		if err := postgres.RunMigrations(ctx, pool); err != nil {
			return errors.Wrap(err, "run migrations")
		}
		sink = postgres.NewCouponRepository(postgres.New(pool))
	}

	rep, err := load(ctx, files, suspects, opts.batchSize, time.Now().UTC(), sink)
	if err != nil {
		return err
	}
	rep.log()
	return nil
}

type report struct {
	records    int
	invalid    int
	inserted   int64
	existing   int64
	duplicates []string
}

func (r report) log() {
	if len(r.duplicates) > 0 {
		slog.Warn("duplicate codes skipped",
			slog.Int("count", len(r.duplicates)),
			slog.String("codes", strings.Join(r.duplicates, ",")),
		)
	}
	slog.Info("import summary",
		slog.Int("records", r.records),
		slog.Int("invalid", r.invalid),
		slog.Int("duplicates", len(r.duplicates)),
		slog.Int64("inserted", r.inserted),
		slog.Int64("existing", r.existing),
	)
}

// load parses every file and imports coupons in batches. Records whose code
// is a suspect are held back until all files are read, then imported only if
// the code occurred exactly once.
func load(ctx context.Context, files []string, suspects map[string]struct{}, batchSize int, now time.Time, sink importer) (report, error) {
	var (
		rep     report
		batch   = make([]coupon.Coupon, 0, batchSize)
		counts  = make(map[string]int, len(suspects))
		pending = make(map[string]coupon.Coupon)
	)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		n, err := sink.Import(ctx, batch)
		if err != nil {
			return errors.Wrap(err, "import batch")
		}
		rep.inserted += n
		rep.existing += int64(len(batch)) - n
		batch = batch[:0]
		return nil
	}

	for _, path := range files {
		err := scanFile(ctx, path, func(line int, rec []string) error {
			rep.records++
			code := strings.TrimSpace(rec[colCode])
			_, suspect := suspects[code]
			if suspect {
				counts[code]++
			}

			c, err := parseRecord(rec, now)
			if err != nil {
				rep.invalid++
				slog.Warn("invalid record",
					slog.String("file", path),
					slog.Int("line", line),
					slog.String("code", code),
					slog.String("error", err.Error()),
				)
				return nil
			}
			if suspect {
				if _, ok := pending[code]; !ok {
					pending[code] = *c
				}
				return nil
			}

			batch = append(batch, *c)
			if len(batch) >= batchSize {
				return flush()
			}
			return nil
		})
		if err != nil {
			return rep, errors.Wrapf(err, "load %s", path)
		}
		slog.Info("file loaded", slog.String("file", path), slog.Int64("inserted", rep.inserted))
	}

	for code, n := range counts {
		if n > 1 {
			rep.duplicates = append(rep.duplicates, code)
			continue
		}
		if c, ok := pending[code]; ok {
			batch = append(batch, c)
			if len(batch) >= batchSize {
				if err := flush(); err != nil {
					return rep, err
				}
			}
		}
	}
	slices.Sort(rep.duplicates)
	if err := flush(); err != nil {
		return rep, err
	}
	return rep, nil
}
