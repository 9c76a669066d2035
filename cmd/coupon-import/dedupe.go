package main

import (
	"context"
	"log/slog"
	"strings"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
	"golang.org/x/sync/errgroup"
)

// findSuspects returns codes that may occur more than once across files.
//
// Pass 1 builds one bloom filter per file concurrently; a code already in
// its own file's filter is a suspect. Pass 2 re-streams every file and tests
// each code against the other files' filters. Suspects are a superset of the
// real duplicates; false positives are ruled out by an exact recount.
func findSuspects(ctx context.Context, files []string, expected uint, fpr float64) (map[string]struct{}, error) {
	filters := make([]*bloom.BloomFilter, len(files))
	suspects := make([]map[string]struct{}, len(files))

	g, gctx := errgroup.WithContext(ctx)
	for i, path := range files {
		g.Go(func() error {
			filter := bloom.NewWithEstimates(expected, fpr)
			local := make(map[string]struct{})
			var count int
			err := scanFile(gctx, path, func(_ int, rec []string) error {
				code := strings.TrimSpace(rec[colCode])
				if filter.TestAndAddString(code) {
					local[code] = struct{}{}
				}
				count++
				return nil
			})
			if err != nil {
				return errors.Wrapf(err, "build filter for %s", path)
			}
			slog.Info("pass 1 complete",
				slog.String("file", path),
				slog.Int("codes", count),
				slog.Int("suspects", len(local)),
			)
			filters[i], suspects[i] = filter, local
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if len(files) > 1 {
		g, gctx = errgroup.WithContext(ctx)
		for i, path := range files {
			g.Go(func() error {
				local := suspects[i]
				err := scanFile(gctx, path, func(_ int, rec []string) error {
					code := strings.TrimSpace(rec[colCode])
					for j, f := range filters {
						if j != i && f.TestString(code) {
							local[code] = struct{}{}
							break
						}
					}
					return nil
				})
				if err != nil {
					return errors.Wrapf(err, "scan %s for suspects", path)
				}
				slog.Info("pass 2 complete", slog.String("file", path), slog.Int("suspects", len(local)))
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
	}

	merged := make(map[string]struct{})
	for _, s := range suspects {
		for code := range s {
			merged[code] = struct{}{}
		}
	}
	return merged, nil
}
