package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/PabloGalante/mealprep-agent/internal/config"
	"github.com/PabloGalante/mealprep-agent/internal/domain"
)

const (
	appName         = "mealprep"
	Version         = "0.1.0"
	shutdownTimeout = 10 * time.Second
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:           appName,
		Short:         "Meal planning agent",
		Long:          "mealprep plans a week of meals, finds recipes, builds a shopping list and estimates nutrition.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file path (YAML); defaults to $MEALPREP_CONFIG")

	cmd.AddCommand(serveCmd(&configPath), planCmd(&configPath))
	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "%s version %s\n", appName, Version)
		},
	})
	return cmd
}

func serveCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg)
		},
	}
}

func serve(ctx context.Context, cfg *config.Config) error {
	a, err := newApp(ctx, cfg, os.Stdout)
	if err != nil {
		return err
	}
	defer a.Close()
	log := a.obs.Logger()

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           a.handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	sweepDone := make(chan struct{})
	go func() {
		defer close(sweepDone)
		a.sweep(ctx, cfg.Session.SweepInterval)
	}()

	errCh := make(chan error, 1)
	go func() {
		log.Info("mealprep API listening", "port", cfg.Port, "memory_backend", cfg.Memory.Backend, "mock_llm", cfg.LLM.UseMock)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	case <-ctx.Done():
		log.Info("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown failed", "error", err)
	}
	<-sweepDone
	return nil
}

func planCmd(configPath *string) *cobra.Command {
	var (
		userID       string
		days         int
		restrictions []string
		cuisines     []string
		budget       float64
		noList       bool
		noNutrition  bool
	)

	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Run one planning workflow and print the result as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			a, err := newApp(ctx, cfg, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer a.Close()

			id, err := a.svc.CreateSession(ctx, domain.UserID(userID), nil)
			if err != nil {
				return err
			}
			req := domain.WorkflowRequest{
				SessionID:           id,
				Days:                days,
				IncludeShoppingList: !noList,
				IncludeNutrition:    !noNutrition,
			}
			if cmd.Flags().Changed("restriction") {
				req.Restrictions = restrictions
			}
			if cmd.Flags().Changed("cuisine") {
				req.Cuisines = cuisines
			}
			if cmd.Flags().Changed("budget") {
				req.Budget = &budget
			}

			res, err := a.svc.RunWorkflow(ctx, req)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(res)
		},
	}

	cmd.Flags().StringVarP(&userID, "user", "u", "cli-user", "User id whose preferences and history are used")
	cmd.Flags().IntVarP(&days, "days", "d", 7, "Number of days to plan")
	cmd.Flags().StringSliceVarP(&restrictions, "restriction", "r", nil, "Dietary restriction (repeatable)")
	cmd.Flags().StringSliceVar(&cuisines, "cuisine", nil, "Cuisine preference (repeatable)")
	cmd.Flags().Float64Var(&budget, "budget", 0, "Weekly budget in USD")
	cmd.Flags().BoolVar(&noList, "no-shopping-list", false, "Skip the shopping list")
	cmd.Flags().BoolVar(&noNutrition, "no-nutrition", false, "Skip the nutrition analysis")
	return cmd
}
