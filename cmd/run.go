package cmd

import (
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/txyyddss/actions-stock-monitor/internal/config"
	"github.com/txyyddss/actions-stock-monitor/internal/logging"
	"github.com/txyyddss/actions-stock-monitor/internal/metrics"
	"github.com/txyyddss/actions-stock-monitor/internal/runner"
)

// newRunCmd creates the 'run' subcommand, which executes the crawl pipeline
// either once or on a schedule.
func newRunCmd() *cobra.Command {
	var (
		mode    string
		dryRun  bool
		loop    bool
		targets []string
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Crawl all targets, diff against the snapshot, and notify",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if cmd.Flags().Changed("mode") {
				cfg.Mode = config.Mode(mode)
			}
			if cmd.Flags().Changed("dry-run") {
				cfg.DryRun = dryRun
			}
			explicit := cmd.Flags().Changed("targets")
			if explicit {
				cfg.Targets = targets
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid config: %w", err)
			}

			log, err := logging.New(cfg.Logging.Development)
			if err != nil {
				return err
			}
			defer log.Sync() //nolint:errcheck

			m := metrics.New()
			if cfg.MetricsAddr != "" {
				mux := http.NewServeMux()
				mux.Handle("/metrics", m.Handler())
				go func() {
					if err := http.ListenAndServe(cfg.MetricsAddr, mux); err != nil {
						log.Warn("metrics listener stopped", zap.Error(err))
					}
				}()
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			r := runner.New(cfg, log, m)
			opts := runner.Options{ExplicitTargets: explicit}
			if loop {
				return r.RunLoop(ctx, opts)
			}
			return r.RunOnce(ctx, opts)
		},
	}

	cmd.Flags().StringVar(&mode, "mode", string(config.ModeFull), "run mode: full or lite")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "render notifications without sending")
	cmd.Flags().BoolVar(&loop, "loop", false, "keep running one scheduling interval apart")
	cmd.Flags().StringSliceVar(&targets, "targets", nil, "override configured targets (disables pruning)")
	return cmd
}
