// CFRecall - Two-Horizon Collaborative Filtering Recall Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cfrecall

package main

import (
	"fmt"
	"io"
	"time"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/tomtom215/cfrecall/internal/feed"
)

func (c *cli) newApplyCmd() *cobra.Command {
	var date string
	cmd := &cobra.Command{
		Use:   "apply",
		Short: "Apply one day's interaction feed and persist the model",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if date == "" {
				date = feed.Today(time.Now(), c.cfg.Scheduler.LagDays)
			}
			if _, err := feed.ParseDate(date); err != nil {
				return err
			}

			a, err := c.oneShotApp(cmd)
			if err != nil {
				return err
			}
			defer a.close()

			report, err := a.runner.ApplyDaily(cmd.Context(), date)
			if err != nil {
				return fmt.Errorf("apply %s: %w", date, err)
			}
			if err := a.persistIfNeeded(cmd.Context()); err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), report)
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "feed date YYYYMMDD (default: today minus scheduler.lag_days)")
	return cmd
}

func (c *cli) newReinitCmd() *cobra.Command {
	var start, end string
	cmd := &cobra.Command{
		Use:   "reinit",
		Short: "Replay the feed for every day in [start, end]",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := c.oneShotApp(cmd)
			if err != nil {
				return err
			}
			defer a.close()

			report, err := a.runner.Reinitialize(cmd.Context(), start, end)
			if err != nil {
				return fmt.Errorf("reinitialize: %w", err)
			}
			if err := a.persistIfNeeded(cmd.Context()); err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), report)
		},
	}
	cmd.Flags().StringVar(&start, "start", "", "first date YYYYMMDD")
	cmd.Flags().StringVar(&end, "end", "", "last date YYYYMMDD (default: today)")
	_ = cmd.MarkFlagRequired("start") //nolint:errcheck // flag is defined above
	return cmd
}

func (c *cli) newRecallCmd() *cobra.Command {
	var (
		user string
		topK int
	)
	cmd := &cobra.Command{
		Use:   "recall",
		Short: "Print the recall lists of one user from the saved model",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := c.oneShotApp(cmd)
			if err != nil {
				return err
			}
			defer a.close()

			return printJSON(cmd.OutOrStdout(), a.model.Recall(cmd.Context(), user, topK))
		},
	}
	cmd.Flags().StringVar(&user, "user", "", "user identifier")
	cmd.Flags().IntVar(&topK, "top-k", 10, "list length per horizon")
	_ = cmd.MarkFlagRequired("user") //nolint:errcheck // flag is defined above
	return cmd
}

// oneShotApp builds the app for a command that runs against the saved
// model regardless of model.load_on_startup.
func (c *cli) oneShotApp(cmd *cobra.Command) (*app, error) {
	cfg := *c.cfg
	cfg.Model.LoadOnStartup = true
	return newApp(cmd.Context(), &cfg)
}

func printJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}
