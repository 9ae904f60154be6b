package main

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ad-tracker/video-hunter-go/internal/config"
	"github.com/ad-tracker/video-hunter-go/internal/filter"
	"github.com/ad-tracker/video-hunter-go/internal/hunter"
	"github.com/ad-tracker/video-hunter-go/internal/scoring"
	"github.com/ad-tracker/video-hunter-go/internal/service/youtube"
	"github.com/ad-tracker/video-hunter-go/internal/validation"
	"github.com/ad-tracker/video-hunter-go/pkg/logger"
)

const maxTargetCount = 1000

func newRunCommand(ctx *commandContext) *cobra.Command {
	var target int
	var keep bool
	var noProgress bool

	cmd := &cobra.Command{
		Use:   "run <query>",
		Short: "Search a keyword, qualify and score the results, store the winners",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			query := strings.Join(args, " ")
			if !cmd.Flags().Changed("target") {
				target = cfg.Hunter.TargetCount
			}
			if err := validation.New(maxTargetCount, true).ValidateRun(query, target, cfg.YouTube.RegionCode); err != nil {
				return err
			}
			if err := cfg.RequireAPIKey(); err != nil {
				return err
			}

			qualifier, err := filter.New(filter.FromConfig(cfg.Filter))
			if err != nil {
				return err
			}
			scorer, err := newScorer(cfg.Scoring)
			if err != nil {
				return err
			}

			runCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return ctx.withStore(runCtx, func(conn *sql.DB) error {
				var gate youtube.QuotaGate
				if cfg.Quota.Enabled {
					gate = ctx.quotaManager(conn)
				}
				client, err := ctx.youtubeClient(runCtx, gate)
				if err != nil {
					return err
				}

				h := hunter.New(client, qualifier, scorer, ctx.videoRepository(conn),
					hunter.WithBufferFactor(cfg.Hunter.BufferFactor),
					hunter.WithMaxAgeDays(cfg.Filter.MaxDaysAgo),
					hunter.WithItemDelay(cfg.Hunter.ItemDelay),
					hunter.WithSearchLocale(cfg.YouTube.RegionCode, cfg.YouTube.RelevanceLanguage),
					hunter.WithLogger(logger.Named("hunter")),
					hunter.WithMetrics(ctx.metrics),
				)

				req := hunter.Request{
					Query:          query,
					TargetCount:    target,
					ClearBeforeRun: cfg.Hunter.ClearBeforeRun && !keep,
				}
				interactive := !noProgress && isTerminal(cmd.ErrOrStderr())
				stats, runErr := followRun(cmd.ErrOrStderr(), h.Start(runCtx, req), interactive)

				fmt.Fprintln(cmd.OutOrStdout(), renderStats(stats))
				return runErr
			})
		},
	}

	cmd.Flags().IntVarP(&target, "target", "n", 0, "Number of videos wanted (defaults to hunter.targetcount)")
	cmd.Flags().BoolVar(&keep, "keep", false, "Keep previously stored videos instead of clearing them first")
	cmd.Flags().BoolVar(&noProgress, "no-progress", false, "Disable the progress bar")

	return cmd
}

func newScorer(cfg config.ScoringConfig) (*scoring.Engine, error) {
	profile, err := scoring.ProfileFor(cfg.TargetRegion, cfg.TargetLanguage)
	if err != nil {
		return nil, err
	}
	var detector scoring.LanguageDetector
	if !cfg.DetectorDisabled {
		detector = scoring.NewWhatlangDetector()
	}
	return scoring.NewEngine(profile, detector,
		scoring.WithPassThreshold(cfg.PassThreshold),
		scoring.WithLogger(logger.Named("scoring")),
	)
}

// followRun drains a run's events, drawing a progress bar on a terminal and
// plain stage lines elsewhere.
func followRun(w io.Writer, events <-chan hunter.Event, interactive bool) (hunter.Stats, error) {
	var (
		bar       *progressbar.ProgressBar
		stats     hunter.Stats
		runErr    error
		gotResult bool
	)

	for ev := range events {
		switch e := ev.(type) {
		case hunter.StageEvent:
			logger.Log.Debug("stage", zap.String("run_id", e.RunID), zap.Stringer("stage", e.Stage), zap.Int("total", e.Total))
			if e.Stage == hunter.StageFilteringAndScoring && interactive && e.Total > 0 {
				bar = newProgressBar(w, e.Total)
				continue
			}
			if !interactive {
				fmt.Fprintln(w, stageLine(e))
			}
		case hunter.ProgressEvent:
			if bar != nil {
				_ = bar.Set(e.Current)
			} else if !interactive && e.Total > 0 {
				fmt.Fprintf(w, "  %d/%d\n", e.Current, e.Total)
			}
		case hunter.ResultEvent:
			stats, runErr, gotResult = e.Stats, e.Err, true
		}
	}

	// The result is only dropped once the run's context is cancelled.
	if !gotResult {
		runErr = context.Canceled
	}

	if bar != nil {
		_ = bar.Finish()
		fmt.Fprintln(w)
	}
	return stats, runErr
}

func newProgressBar(w io.Writer, total int) *progressbar.ProgressBar {
	return progressbar.NewOptions(total,
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetDescription("scoring"),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(30),
		progressbar.OptionThrottle(100*time.Millisecond),
		progressbar.OptionClearOnFinish(),
	)
}

func stageLine(e hunter.StageEvent) string {
	switch {
	case e.Stage == hunter.StageIdle && e.Cleared > 0:
		return fmt.Sprintf("%s (cleared %d stored videos)", e.Stage, e.Cleared)
	case e.Total > 0:
		return fmt.Sprintf("%s (%d)", e.Stage, e.Total)
	default:
		return e.Stage.String()
	}
}

func renderStats(s hunter.Stats) string {
	rows := [][]string{
		{"Run", s.RunID},
		{"Scraped", strconv.Itoa(s.TotalScraped)},
		{"Processed", strconv.Itoa(s.Processed)},
		{"Passed views", strconv.Itoa(s.PassedViews)},
		{"Passed upload age", strconv.Itoa(s.PassedUploadAge)},
		{"Passed subscribers", strconv.Itoa(s.PassedSubscribers)},
		{"Passed view/sub ratio", strconv.Itoa(s.PassedViewSubRatio)},
		{"Passed all filters", strconv.Itoa(s.PassedAll)},
		{"Tier-1 passed", strconv.Itoa(s.Tier1Passed)},
		{"Saved", strconv.Itoa(s.Saved)},
		{"Rejected", strconv.Itoa(s.Rejected)},
		{"Failed", strconv.Itoa(s.Failed)},
		{"Duration", s.Duration.Round(time.Millisecond).String()},
	}
	return renderTable([]string{"Metric", "Value"}, rows, []columnAlignment{alignLeft, alignRight})
}
