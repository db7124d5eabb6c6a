package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/puntomas/panel/internal/backend"
	"github.com/puntomas/panel/internal/commission"
	"github.com/puntomas/panel/internal/platform/cache"
	"github.com/puntomas/panel/internal/sellers"
	"github.com/puntomas/panel/jobs"
)

type rootOptions struct {
	redisAddr  string
	backendURL string
	timezone   string
	timeout    time.Duration
}

func envOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func (o *rootOptions) location() (*time.Location, error) {
	return time.LoadLocation(o.timezone)
}

func newRootCmd(out io.Writer) *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:           "panelctl",
		Short:         "Operate the commission panel",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(out)
	root.PersistentFlags().StringVar(&opts.redisAddr, "redis", envOr("REDIS_ADDR", "127.0.0.1:6379"), "Redis address")
	root.PersistentFlags().StringVar(&opts.backendURL, "backend", envOr("BACKEND_URL", "http://localhost:3000"), "Commission backend base URL")
	root.PersistentFlags().StringVar(&opts.timezone, "tz", envOr("APP_TIMEZONE", "America/Argentina/Buenos_Aires"), "Timezone for date filters")
	root.PersistentFlags().DurationVar(&opts.timeout, "timeout", 30*time.Second, "Overall command timeout")

	root.AddCommand(newJobsCmd(opts), newCacheCmd(opts), newSellersCmd(opts))
	return root
}

func withTimeout(cmd *cobra.Command, opts *rootOptions) (context.Context, context.CancelFunc) {
	return context.WithTimeout(cmd.Context(), opts.timeout)
}

func newJobsCmd(opts *rootOptions) *cobra.Command {
	jobsCmd := &cobra.Command{
		Use:   "jobs",
		Short: "Manage background jobs",
	}

	trigger := &cobra.Command{
		Use:       "trigger <name>",
		Short:     "Enqueue a job with its default payload",
		Long:      "Enqueue a job by name. Supported: " + strings.Join(jobs.Supported(), ", "),
		Args:      cobra.ExactArgs(1),
		ValidArgs: jobs.Supported(),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := jobs.NewTask(args[0]); err != nil {
				return err
			}
			ctx, cancel := withTimeout(cmd, opts)
			defer cancel()
			client := jobs.NewClient(asynq.RedisClientOpt{Addr: opts.redisAddr})
			defer client.Close()
			info, err := client.Enqueue(ctx, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "enqueued %s id=%s queue=%s\n", args[0], info.ID, info.Queue)
			return nil
		},
	}

	statsCmd := &cobra.Command{
		Use:   "stats",
		Short: "Show the default queue state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: opts.redisAddr})
			defer inspector.Close()
			stats, err := jobs.InspectQueue(inspector)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "queue=%s pending=%d active=%d scheduled=%d retry=%d failed=%d\n",
				stats.Queue, stats.Pending, stats.Active, stats.Scheduled, stats.Retry, stats.Failed)
			return nil
		},
	}

	jobsCmd.AddCommand(trigger, statsCmd)
	return jobsCmd
}

func newCacheCmd(opts *rootOptions) *cobra.Command {
	cacheCmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage panel caches",
	}
	var namespace string
	bump := &cobra.Command{
		Use:   "bump",
		Short: "Invalidate every entry of a cache namespace",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := withTimeout(cmd, opts)
			defer cancel()
			client := redis.NewClient(&redis.Options{Addr: opts.redisAddr})
			defer client.Close()
			c := cache.NewVersioned(client, namespace, 0)
			if err := c.Bump(ctx); err != nil {
				return fmt.Errorf("bump %s: %w", namespace, err)
			}
			ver, err := c.Version(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s now at version %d\n", namespace, ver)
			return nil
		},
	}
	bump.Flags().StringVar(&namespace, "namespace", "dashboard", "Cache namespace")
	cacheCmd.AddCommand(bump)
	return cacheCmd
}

type exportOptions struct {
	token    string
	query    string
	locality string
	province string
	from     string
	to       string
	onlyDebt bool
	mode     string
	output   string
}

func newSellersCmd(opts *rootOptions) *cobra.Command {
	sellersCmd := &cobra.Command{
		Use:   "sellers",
		Short: "Seller commission reports",
	}
	var eo exportOptions
	export := &cobra.Command{
		Use:   "export",
		Short: "Export seller commission summaries as CSV",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if strings.TrimSpace(eo.token) == "" {
				return fmt.Errorf("a backend token is required (--token or BACKEND_SERVICE_TOKEN)")
			}
			loc, err := opts.location()
			if err != nil {
				return err
			}
			ctx, cancel := withTimeout(cmd, opts)
			defer cancel()

			logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: slog.LevelWarn}))
			backend.SetLocation(loc)
			svc := sellers.NewService(backend.New(opts.backendURL, opts.timeout), logger, loc)
			page, err := svc.Summaries(ctx, eo.token, backend.ScopeAdmin, sellers.SummaryQuery{
				Filter: backend.SellerFilter{
					Query:    eo.query,
					Locality: eo.locality,
					Province: eo.province,
					From:     eo.from,
					To:       eo.to,
				},
				OnlyDebt: eo.onlyDebt,
				Mode:     commission.PayMode(eo.mode),
			})
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			if eo.output != "" && eo.output != "-" {
				f, err := os.Create(eo.output)
				if err != nil {
					return err
				}
				defer f.Close()
				w = f
			}
			return sellers.WriteSummariesCSV(w, page.Sellers)
		},
	}
	f := export.Flags()
	f.StringVar(&eo.token, "token", os.Getenv("BACKEND_SERVICE_TOKEN"), "Admin bearer token for the backend")
	f.StringVar(&eo.query, "q", "", "Free text filter")
	f.StringVar(&eo.locality, "localidad", "", "Locality filter")
	f.StringVar(&eo.province, "provincia", "", "Province filter")
	f.StringVar(&eo.from, "desde", "", "Start date (YYYY-MM-DD)")
	f.StringVar(&eo.to, "hasta", "", "End date (YYYY-MM-DD)")
	f.BoolVar(&eo.onlyDebt, "con-deuda", false, "Only sellers with pending commission")
	f.StringVar(&eo.mode, "modo", string(commission.PayModeSeller), "Payment mode used for the debt filter")
	f.StringVar(&eo.output, "out", "-", "Output file, - for stdout")
	sellersCmd.AddCommand(export)
	return sellersCmd
}
