package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/mlaterman/clickpilot/internal/abort"
	"github.com/mlaterman/clickpilot/internal/config"
	"github.com/mlaterman/clickpilot/internal/content"
	"github.com/mlaterman/clickpilot/internal/detector"
	"github.com/mlaterman/clickpilot/internal/executor"
	"github.com/mlaterman/clickpilot/internal/humanoid"
	"github.com/mlaterman/clickpilot/internal/input"
	"github.com/mlaterman/clickpilot/internal/observability"
	"github.com/mlaterman/clickpilot/internal/resolve"
	"github.com/mlaterman/clickpilot/internal/screen"
	"github.com/mlaterman/clickpilot/internal/session"
)

// ExitCodeError carries the session's exit status up to main.
type ExitCodeError struct {
	Code int
}

func (e *ExitCodeError) Error() string {
	return fmt.Sprintf("session ended with exit code %d", e.Code)
}

// newRunCmd creates and configures the `run` command.
func newRunCmd() *cobra.Command {
	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Runs one detect-confirm-act automation cycle",
		PreRunE: func(cmd *cobra.Command, args []string) error {
			// Bind flags to their viper keys so CLI flags override the
			// config file and environment with the right precedence.
			if err := viper.BindPFlag("detector.endpoint", cmd.Flags().Lookup("endpoint")); err != nil {
				return err
			}
			if err := viper.BindPFlag("output.dir", cmd.Flags().Lookup("output")); err != nil {
				return err
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := observability.GetLogger()

			cfg, err := config.NewConfigFromViper(viper.GetViper())
			if err != nil {
				return err
			}

			mode := config.ModeConfirm
			if auto, _ := cmd.Flags().GetBool("auto"); auto {
				mode = config.ModeAuto
			}
			appName, _ := cmd.Flags().GetString("app")
			screenshotPath, _ := cmd.Flags().GetString("screenshot")
			cfg.Session = config.SessionConfig{
				AppName:        appName,
				Mode:           mode,
				ScreenshotPath: screenshotPath,
			}
			if err := cfg.Session.Validate(); err != nil {
				return err
			}

			controller, err := buildController(cfg, logger)
			if err != nil {
				return fmt.Errorf("failed to initialize session components: %w", err)
			}

			report := controller.Run(ctx)

			fmt.Printf("\nSession %s: %s (%.1fs)\n",
				report.SessionID, report.Status, report.Elapsed.Seconds())
			if report.PreviewPath != "" {
				fmt.Printf("Preview: %s\n", report.PreviewPath)
			}
			for _, f := range report.SavedFiles {
				fmt.Printf("Saved: %s\n", f)
			}
			if report.Err != nil {
				fmt.Printf("Error: %v\n", report.Err)
			}

			if code := report.ExitCode(); code != session.ExitSucceeded {
				return &ExitCodeError{Code: code}
			}
			return nil
		},
	}

	runCmd.Flags().String("app", "", "Application name to detect (e.g. Notepad)")
	runCmd.Flags().Bool("auto", false, "Skip the confirmation gate")
	runCmd.Flags().String("screenshot", "", "Path to a static screenshot (bypasses live capture)")
	runCmd.Flags().String("endpoint", "", "Detection service URL (overrides config/env)")
	runCmd.Flags().StringP("output", "o", "", "Output directory for artifacts (overrides config/env)")
	_ = runCmd.MarkFlagRequired("app")

	return runCmd
}

// buildController handles dependency injection for one session.
func buildController(cfg *config.Config, logger *zap.Logger) (*session.Controller, error) {
	outputDir, err := cfg.ResolveOutputDir()
	if err != nil {
		return nil, err
	}

	det, err := detector.NewHTTPClient(cfg.Detector, logger)
	if err != nil {
		return nil, err
	}

	injector := input.NewRobotInjector(cfg.Executor, logger)

	var mover executor.Mover
	if cfg.Executor.Humanoid {
		moverCfg := humanoid.DefaultMoverConfig()
		moverCfg.MinDuration = cfg.Executor.MoveDuration
		mover = humanoid.NewMover(injector, moverCfg, time.Now().UnixNano(), logger)
	} else {
		mover = executor.NewDirectMover(injector)
	}

	return session.New(
		cfg,
		det,
		resolve.New(cfg.Resolver, logger),
		screen.NewCapturer(injector, logger),
		executor.New(injector, mover, cfg.Executor, logger),
		content.NewProvider(cfg.Content, logger),
		&session.IOConfirmer{In: os.Stdin, Out: os.Stdout},
		abort.NewMonitor(cfg.Abort, abort.NewHookListener(), injector, logger),
		outputDir,
		logger,
	)
}
