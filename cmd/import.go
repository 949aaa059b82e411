package main

import (
	"context"
	"os/signal"
	"sync/atomic"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/prospect-research/internal/export"
	"github.com/sells-group/prospect-research/internal/workflow"
)

var (
	importLimit       int
	importConcurrency int
	importProfile     bool
)

var importCmd = &cobra.Command{
	Use:   "import <companies.xlsx>",
	Short: "Research every company listed in the first column of a spreadsheet",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		companies, err := export.ReadCompanies(args[0])
		if err != nil {
			return err
		}

		pref, err := parsePreference(strategy)
		if err != nil {
			return err
		}
		env, err := initEnv(ctx, pref)
		if err != nil {
			return err
		}
		defer env.Close()

		_, err = processBatch(ctx, env.Controller, companies, batchOptions{
			limit:       importLimit,
			concurrency: importConcurrency,
			profile:     importProfile,
		})
		return err
	},
}

func init() {
	importCmd.Flags().IntVar(&importLimit, "limit", 100, "max number of companies to process")
	importCmd.Flags().IntVar(&importConcurrency, "concurrency", 2, "companies researched at once")
	importCmd.Flags().BoolVar(&importProfile, "profile", false, "also create a profile after each successful research")
	rootCmd.AddCommand(importCmd)
}

// batchRunner is the part of the workflow a batch needs.
type batchRunner interface {
	Research(ctx context.Context, company string) (*workflow.ResearchResult, error)
	CreateProfile(ctx context.Context, prospectID string) (*workflow.ProfileResult, error)
}

type batchOptions struct {
	limit       int
	concurrency int
	profile     bool
}

type batchSummary struct {
	Succeeded int64
	Failed    int64
}

// processBatch applies the limit, then researches companies concurrently.
// Individual failures are logged and counted; they never abort the batch.
func processBatch(ctx context.Context, run batchRunner, companies []string, opts batchOptions) (batchSummary, error) {
	var summary batchSummary
	if len(companies) == 0 {
		zap.L().Info("no companies to import")
		return summary, nil
	}
	if opts.limit > 0 && len(companies) > opts.limit {
		companies = companies[:opts.limit]
	}
	if opts.concurrency < 1 {
		opts.concurrency = 1
	}

	zap.L().Info("processing batch",
		zap.Int("companies", len(companies)),
		zap.Int("concurrency", opts.concurrency),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.concurrency)

	var succeeded, failed atomic.Int64
	for _, company := range companies {
		g.Go(func() error {
			log := zap.L().With(zap.String("company", company))

			res, err := run.Research(gctx, company)
			if err != nil {
				failed.Add(1)
				log.Error("research failed", zap.Error(err))
				return nil
			}
			log = log.With(zap.String("prospect_id", res.Prospect.ID))

			if opts.profile {
				if _, err := run.CreateProfile(gctx, res.Prospect.ID); err != nil {
					failed.Add(1)
					log.Error("profile failed", zap.Error(err))
					return nil
				}
			}

			succeeded.Add(1)
			log.Info("prospect complete",
				zap.String("enhancement_status", string(res.EnhancementStatus)),
				zap.Int("sources_succeeded", res.SourcesSucceeded),
			)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return summary, eris.Wrap(err, "batch processing")
	}

	summary = batchSummary{Succeeded: succeeded.Load(), Failed: failed.Load()}
	zap.L().Info("batch complete",
		zap.Int64("succeeded", summary.Succeeded),
		zap.Int64("failed", summary.Failed),
	)
	return summary, nil
}
