package main

import (
	"database/sql"
	"errors"
	"fmt"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/ad-tracker/video-hunter-go/internal/db"
	"github.com/ad-tracker/video-hunter-go/internal/db/models"
)

func newListCommand(ctx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "Show stored videos, most viewed first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(cmd.Context(), func(conn *sql.DB) error {
				videos, err := ctx.videoRepository(conn).List(cmd.Context(), limit)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(videos) == 0 {
					fmt.Fprintln(out, "No videos stored")
					return nil
				}
				fmt.Fprintln(out, renderVideos(videos))
				return nil
			})
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "l", 20, "Maximum rows to show (0 shows all)")
	return cmd
}

func renderVideos(videos []*models.Video) string {
	headers := []string{"#", "Video", "Title", "Channel", "Views", "Subs", "Uploaded", "VPH", "ER", "Country", "Score"}
	aligns := []columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignLeft, alignRight, alignRight, alignLeft, alignRight}

	rows := make([][]string, 0, len(videos))
	for i, v := range videos {
		uploaded := "-"
		if !v.UploadedAt.IsZero() {
			uploaded = humanize.Time(v.UploadedAt)
		}
		rows = append(rows, []string{
			strconv.Itoa(i + 1),
			v.VideoID,
			truncate(v.Title, 48),
			truncate(v.ChannelTitle, 24),
			humanize.Comma(v.Views),
			models.FormatCount(v.SubscriberCount),
			uploaded,
			fmt.Sprintf("%.0f", v.VPH()),
			fmt.Sprintf("%.1f%%", v.EngagementRate()),
			v.CountryName(),
			fmt.Sprintf("%.2f", v.Tier1Score),
		})
	}
	return renderTable(headers, rows, aligns)
}

func newCountCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "count",
		Short: "Print the number of stored videos",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(cmd.Context(), func(conn *sql.DB) error {
				n, err := ctx.videoRepository(conn).Count(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), n)
				return nil
			})
		},
	}
}

var errClearNotConfirmed = errors.New("refusing to clear the store without --yes")

func newClearCommand(ctx *commandContext) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete every stored video",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return errClearNotConfirmed
			}
			return ctx.withStore(cmd.Context(), func(conn *sql.DB) error {
				n, err := ctx.videoRepository(conn).DeleteAll(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Cleared %s videos\n", humanize.Comma(n))
				return nil
			})
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Confirm deletion")
	return cmd
}

func newQuotaCommand(ctx *commandContext) *cobra.Command {
	var days int

	cmd := &cobra.Command{
		Use:   "quota",
		Short: "Show today's API quota usage and recent history",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(cmd.Context(), func(conn *sql.DB) error {
				mgr := ctx.quotaManager(conn)
				info, err := mgr.GetQuotaInfo(cmd.Context())
				if err != nil {
					return err
				}
				history, err := mgr.History(cmd.Context(), days)
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Today (%s): %s of %s units used, %s remaining before the %d-unit threshold\n",
					info.Date,
					humanize.Comma(int64(info.QuotaUsed)),
					humanize.Comma(int64(info.QuotaLimit)),
					humanize.Comma(int64(max(mgr.Threshold()-info.QuotaUsed, 0))),
					mgr.Threshold(),
				)
				if len(history) == 0 {
					return nil
				}

				rows := make([][]string, 0, len(history))
				for _, h := range history {
					rows = append(rows, []string{
						h.Date,
						humanize.Comma(int64(h.QuotaUsed)),
						humanize.Comma(int64(h.QuotaLimit)),
						strconv.Itoa(h.SearchCalls),
						strconv.Itoa(h.VideosListCalls),
						strconv.Itoa(h.ChannelsListCalls),
						strconv.Itoa(h.OperationsCount),
					})
				}
				fmt.Fprintln(out, renderTable(
					[]string{"Date", "Used", "Limit", "search", "videos", "channels", "Ops"},
					rows,
					[]columnAlignment{alignLeft, alignRight, alignRight, alignRight, alignRight, alignRight, alignRight},
				))
				return nil
			})
		},
	}

	cmd.Flags().IntVar(&days, "days", 7, "Days of history to show")
	return cmd
}

func newMigrateCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or upgrade the local store schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(cmd.Context(), func(conn *sql.DB) error {
				version, dirty, err := db.SchemaVersion(conn)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Schema at version %d (dirty: %t)\n", version, dirty)
				return nil
			})
		},
	}
}
