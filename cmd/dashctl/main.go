package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/simone-hue/boundaryless-content-dashboard/internal/adapters/render"
	"github.com/simone-hue/boundaryless-content-dashboard/internal/adapters/repo"
	"github.com/simone-hue/boundaryless-content-dashboard/internal/adapters/templates"
	"github.com/simone-hue/boundaryless-content-dashboard/internal/infra/config"
	"github.com/simone-hue/boundaryless-content-dashboard/internal/infra/db"
	applog "github.com/simone-hue/boundaryless-content-dashboard/internal/infra/log"
	"github.com/simone-hue/boundaryless-content-dashboard/internal/usecase/newsletter"
	"github.com/simone-hue/boundaryless-content-dashboard/internal/usecase/sources"
)

var (
	cfg    config.AppConfig
	logger zerolog.Logger
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "dashctl",
		Short:         "Administrative commands for the content dashboard",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			cfg, err = config.Parse()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			logger = applog.NewLogger(cfg.AppEnv)
			return nil
		},
	}

	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(seedSourcesCmd())
	rootCmd.AddCommand(syncSourcesCmd())
	rootCmd.AddCommand(exportCmd())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		stop()
		os.Exit(1)
	}
}

func connect(ctx context.Context) (*pgxpool.Pool, error) {
	if cfg.PGDSN == "" {
		return nil, fmt.Errorf("PG_DSN is not set")
	}
	pool, err := db.Connect(cfg.PGDSN, cfg.PGMaxConns)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := db.Migrate(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}
	return pool, nil
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the database schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			pool, err := connect(cmd.Context())
			if err != nil {
				return err
			}
			defer pool.Close()
			fmt.Println("Schema applied")
			return nil
		},
	}
}

func seedSourcesCmd() *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "seed-sources",
		Short: "Replace the source catalogue (built-in catalogue unless --file is given)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			catalogue, err := sources.DefaultCatalogue()
			if file != "" {
				catalogue, err = sources.LoadCatalogue(file)
			}
			if err != nil {
				return err
			}

			pool, err := connect(cmd.Context())
			if err != nil {
				return err
			}
			defer pool.Close()

			svc := sources.NewService(repo.NewPostgres(pool), templates.NewFS(cfg.StrategyPath), logger)
			n, err := svc.Seed(cmd.Context(), catalogue)
			if err != nil {
				return err
			}
			for _, e := range catalogue.Sources {
				fmt.Printf("Source: %s (%s)\n", e.Name, e.Path)
			}
			fmt.Printf("Seeded %d sources\n", n)
			return nil
		},
	}

	cmd.Flags().StringVar(&file, "file", "", "YAML catalogue file")
	return cmd
}

func syncSourcesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sync-sources",
		Short: "Re-read watched source files and snapshot the changed ones",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			pool, err := connect(cmd.Context())
			if err != nil {
				return err
			}
			defer pool.Close()

			svc := sources.NewService(repo.NewPostgres(pool), templates.NewFS(cfg.StrategyPath), logger)
			report, err := svc.Sync(cmd.Context())
			if err != nil {
				return err
			}
			for _, r := range report.Results {
				if r.Error != "" {
					fmt.Printf("  %-10s %s: %s\n", r.Status, r.Name, r.Error)
					continue
				}
				fmt.Printf("  %-10s %s\n", r.Status, r.Name)
			}
			fmt.Printf("Updated: %d, unchanged: %d, errors: %d\n", report.Synced, report.Unchanged, report.Errors)
			return nil
		},
	}
}

func exportCmd() *cobra.Command {
	var (
		format string
		out    string
	)

	cmd := &cobra.Command{
		Use:   "export [newsletter-id]",
		Short: "Export a newsletter as markdown or HTML",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if format != "markdown" && format != "html" {
				return fmt.Errorf("unknown format %q", format)
			}
			pool, err := connect(cmd.Context())
			if err != nil {
				return err
			}
			defer pool.Close()

			n, err := newsletter.NewService(repo.NewPostgres(pool), logger).Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			body := render.Markdown(n)
			if format == "html" {
				if body, err = render.HTML(n); err != nil {
					return err
				}
			}
			if out == "" {
				_, err = fmt.Fprint(cmd.OutOrStdout(), body)
				return err
			}
			if err := os.WriteFile(out, []byte(body), 0o644); err != nil {
				return fmt.Errorf("write %s: %w", out, err)
			}
			fmt.Printf("Written %s\n", out)
			return nil
		},
	}

	cmd.Flags().StringVar(&format, "format", "markdown", "markdown or html")
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file (stdout if empty)")
	return cmd
}
