package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/socialchef/sizzle/internal/app"
	"github.com/socialchef/sizzle/internal/config"
	"github.com/socialchef/sizzle/internal/db"
	"github.com/socialchef/sizzle/internal/middleware"
	"github.com/socialchef/sizzle/internal/worker"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "sizzlectl",
		Short:         "Operate a Sizzle deployment",
		Long:          `sizzlectl applies the database schema, regenerates step images for stored recipes and issues development tokens.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newMigrateCmd(), newRegenerateImagesCmd(), newDevTokenCmd())
	return root
}

func newMigrateCmd() *cobra.Command {
	var databaseURL string
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply the embedded schema (idempotent)",
		RunE: func(cmd *cobra.Command, args []string) error {
			if databaseURL == "" {
				return fmt.Errorf("--database-url or DATABASE_URL is required")
			}
			ctx := cmd.Context()
			pool, err := db.NewPool(ctx, databaseURL, db.PoolOptions{MaxConns: 2})
			if err != nil {
				return fmt.Errorf("failed to connect to database: %w", err)
			}
			defer pool.Close()

			if err := db.Migrate(ctx, pool); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "schema is up to date")
			return nil
		},
	}
	cmd.Flags().StringVar(&databaseURL, "database-url", os.Getenv("DATABASE_URL"), "PostgreSQL connection string")
	return cmd
}

func newRegenerateImagesCmd() *cobra.Command {
	var (
		recipeID int64
		force    bool
		timeout  time.Duration
	)
	cmd := &cobra.Command{
		Use:   "regenerate-images",
		Short: "Generate step images for a stored recipe and wait for the results",
		RunE: func(cmd *cobra.Command, args []string) error {
			if recipeID <= 0 {
				return fmt.Errorf("--recipe-id is required")
			}
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			flush := app.InitObservability(ctx, cfg, "ctl")
			defer flush(context.Background())

			a, err := app.New(ctx, cfg, app.Options{ForcePool: true})
			if err != nil {
				return err
			}
			// tasks still running after the wait get one more timeout to drain
			defer closeWithin(a, timeout)

			handles, err := a.Recipes.GenerateAllStepImages(ctx, recipeID, !force)
			if err != nil {
				return err
			}
			return printResults(cmd.OutOrStdout(), worker.WaitForAllImages(handles, timeout))
		},
	}
	cmd.Flags().Int64Var(&recipeID, "recipe-id", 0, "recipe to regenerate")
	cmd.Flags().BoolVar(&force, "force", false, "regenerate even when an image already exists")
	cmd.Flags().DurationVar(&timeout, "timeout", 5*time.Minute, "how long to wait for each step")
	return cmd
}

type closer interface {
	Close(ctx context.Context)
}

// closeWithin closes c, giving in-flight work at most d.
func closeWithin(c closer, d time.Duration) {
	ctx, cancel := context.WithTimeout(context.Background(), d)
	defer cancel()
	c.Close(ctx)
}

// printResults writes one line per step and fails when any step failed.
func printResults(w io.Writer, results []worker.Result) error {
	failed := 0
	for _, r := range results {
		switch {
		case !r.Success:
			failed++
			fmt.Fprintf(w, "step %d: failed: %s\n", r.StepID, r.Error)
		case r.Skipped:
			fmt.Fprintf(w, "step %d: kept existing %s\n", r.StepID, r.ImageURL)
		default:
			fmt.Fprintf(w, "step %d: generated %s\n", r.StepID, r.ImageURL)
		}
	}
	fmt.Fprintf(w, "%d steps, %d failed\n", len(results), failed)
	if failed > 0 {
		return fmt.Errorf("%d of %d step images failed", failed, len(results))
	}
	return nil
}

func newDevTokenCmd() *cobra.Command {
	var (
		secret      string
		supabaseURL string
		subject     string
		ttl         time.Duration
	)
	cmd := &cobra.Command{
		Use:   "dev-token",
		Short: "Print a signed access token for calling write endpoints locally",
		RunE: func(cmd *cobra.Command, args []string) error {
			if secret == "" || supabaseURL == "" {
				return fmt.Errorf("--secret and --supabase-url are required (or SUPABASE_JWT_SECRET and SUPABASE_URL)")
			}
			token, err := middleware.IssueToken(secret, middleware.Issuer(supabaseURL), subject, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&secret, "secret", os.Getenv("SUPABASE_JWT_SECRET"), "JWT signing secret")
	cmd.Flags().StringVar(&supabaseURL, "supabase-url", os.Getenv("SUPABASE_URL"), "Supabase project URL")
	cmd.Flags().StringVar(&subject, "sub", "dev-user", "token subject")
	cmd.Flags().DurationVar(&ttl, "ttl", time.Hour, "token lifetime")
	return cmd
}
