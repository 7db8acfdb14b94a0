package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/frat/frat/internal/config"
	"github.com/frat/frat/internal/platform/bundle"
	"github.com/frat/frat/internal/platform/db"
	"github.com/frat/frat/internal/platform/sandbox"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "frat-server",
		Short: "Falls Risk Assessment Tool API server",
	}
	root.AddCommand(serveCmd())
	root.AddCommand(migrateCmd())
	root.AddCommand(importCmd())
	root.AddCommand(seedCmd())
	return root
}

// loadConfig loads and validates configuration and builds the process logger.
func loadConfig() (*config.Config, zerolog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, zerolog.Nop(), err
	}
	if err := cfg.Validate(); err != nil {
		return nil, zerolog.Nop(), err
	}
	return cfg, newLogger(cfg.Env), nil
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the FRAT API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig()
			if err != nil {
				return err
			}
			return runServer(cfg, logger)
		},
	}
}

func runServer(cfg *config.Config, logger zerolog.Logger) error {
	ctx := context.Background()
	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		logger.Error().Err(err).Msg("failed to initialise storage")
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		a.close(closeCtx)
	}()

	if n, err := a.accounts.SeedDefaults(ctx); err != nil {
		logger.Warn().Err(err).Msg("failed to seed default users")
	} else if n > 0 {
		logger.Info().Int("users", n).Msg("seeded default users")
	}

	if cfg.BundlePath != "" {
		b, err := bundle.ReadFile(cfg.BundlePath)
		if err != nil {
			return err
		}
		if _, err := a.importer().Run(ctx, b); err != nil {
			return fmt.Errorf("import %s: %w", cfg.BundlePath, err)
		}
	}

	e := a.routes()

	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Str("env", cfg.Env).Str("store", cfg.StoreDriver).Msg("starting server")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("server shutdown failed")
		return err
	}
	logger.Info().Msg("server stopped")
	return nil
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run Postgres migrations",
	}

	withMigrator := func(cmd *cobra.Command, fn func(context.Context, *db.Migrator) error) error {
		dir, _ := cmd.Flags().GetString("dir")
		cfg, _, err := loadConfig()
		if err != nil {
			return err
		}
		if cfg.StoreDriver != config.DriverPostgres {
			return fmt.Errorf("migrations apply to STORE_DRIVER=%s only, got %q", config.DriverPostgres, cfg.StoreDriver)
		}
		ctx := context.Background()
		pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
		if err != nil {
			return err
		}
		defer pool.Close()
		return fn(ctx, db.NewMigrator(pool, dir))
	}

	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMigrator(cmd, func(ctx context.Context, m *db.Migrator) error {
				count, err := m.Up(ctx)
				if err != nil {
					return fmt.Errorf("migration failed: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Applied %d migration(s) successfully.\n", count)
				return nil
			})
		},
	}
	upCmd.Flags().String("dir", "./migrations", "Path to migrations directory")
	cmd.AddCommand(upCmd)

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMigrator(cmd, func(ctx context.Context, m *db.Migrator) error {
				statuses, err := m.Status(ctx)
				if err != nil {
					return fmt.Errorf("failed to get migration status: %w", err)
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "%-10s %-40s %-10s %s\n", "VERSION", "NAME", "STATUS", "APPLIED AT")
				for _, s := range statuses {
					status, appliedAt := "pending", ""
					if s.Applied {
						status = "applied"
						if s.AppliedAt != nil {
							appliedAt = s.AppliedAt.Format("2006-01-02 15:04:05")
						}
					}
					fmt.Fprintf(out, "%-10d %-40s %-10s %s\n", s.Version, s.Name, status, appliedAt)
				}
				return nil
			})
		},
	}
	statusCmd.Flags().String("dir", "./migrations", "Path to migrations directory")
	cmd.AddCommand(statusCmd)

	return cmd
}

func importCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import a patient and assessment bundle",
		RunE: func(cmd *cobra.Command, args []string) error {
			file, _ := cmd.Flags().GetString("file")
			s3url, _ := cmd.Flags().GetString("s3")

			cfg, logger, err := loadConfig()
			if err != nil {
				return err
			}
			if file == "" && s3url == "" {
				file = cfg.BundlePath
			}
			if (file == "") == (s3url == "") {
				return errors.New("exactly one of --file or --s3 is required")
			}

			ctx := context.Background()
			var b *bundle.Bundle
			if s3url != "" {
				loc, err := bundle.ParseS3URL(s3url)
				if err != nil {
					return err
				}
				client, err := bundle.NewS3Client(ctx)
				if err != nil {
					return err
				}
				b, err = bundle.ReadS3(ctx, client, loc)
				if err != nil {
					return err
				}
			} else {
				b, err = bundle.ReadFile(file)
				if err != nil {
					return err
				}
			}

			a, err := newApp(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer a.close(context.Background())

			rep, err := a.importer().Run(ctx, b)
			if err != nil {
				return err
			}
			printReport(cmd, rep)
			return nil
		},
	}
	cmd.Flags().String("file", "", "Path to a bundle JSON file (defaults to BUNDLE_PATH)")
	cmd.Flags().String("s3", "", "Bundle location as s3://bucket/key")
	return cmd
}

func seedCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Generate synthetic patients and assessment histories",
		RunE: func(cmd *cobra.Command, args []string) error {
			sc := sandbox.DefaultSeedConfig()
			sc.PatientCount, _ = cmd.Flags().GetInt("count")
			sc.AssessmentsPerPatient, _ = cmd.Flags().GetInt("assessments")
			sc.Seed, _ = cmd.Flags().GetInt64("seed")
			out, _ := cmd.Flags().GetString("out")

			if sc.PatientCount <= 0 {
				return errors.New("--count must be positive")
			}
			if sc.AssessmentsPerPatient < 0 {
				return errors.New("--assessments must not be negative")
			}

			b, res := sandbox.NewSeeder(sc).Generate()
			if out != "" {
				if err := bundle.WriteFile(out, b); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d patient(s) and %d assessment(s) to %s\n",
					res.Patients, res.Assessments, out)
				return nil
			}

			cfg, logger, err := loadConfig()
			if err != nil {
				return err
			}
			if cfg.StoreDriver == config.DriverMemory {
				return errors.New("seeding the in-memory store has no effect; use --out or set STORE_DRIVER")
			}
			ctx := context.Background()
			a, err := newApp(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer a.close(context.Background())

			rep, err := a.importer().Run(ctx, b)
			if err != nil {
				return err
			}
			printReport(cmd, rep)
			return nil
		},
	}
	cmd.Flags().Int("count", 20, "Number of patients")
	cmd.Flags().Int("assessments", 2, "Assessments per patient")
	cmd.Flags().Int64("seed", 0, "Random seed (0 picks one)")
	cmd.Flags().String("out", "", "Write the bundle to this file instead of importing it")
	return cmd
}

func printReport(cmd *cobra.Command, rep bundle.Report) {
	lines := []string{
		fmt.Sprintf("patients created: %d", rep.PatientsCreated),
		fmt.Sprintf("patients updated: %d", rep.PatientsUpdated),
		fmt.Sprintf("assessment records: %d (skipped %d)", rep.Records, rep.RecordsSkipped),
		fmt.Sprintf("users created: %d (skipped %d)", rep.UsersCreated, rep.UsersSkipped),
	}
	fmt.Fprintln(cmd.OutOrStdout(), strings.Join(lines, "\n"))
}
