package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"nexus/cmd/nexus/ui"
	"nexus/internal/config"
	"nexus/internal/feed"
	"nexus/internal/logging"
	"nexus/internal/seed"
	"nexus/internal/session"
	"nexus/internal/snapshot"
	"nexus/internal/types"
)

var (
	// Global flags
	verbose   bool
	workspace string

	// Logger
	logger *zap.Logger
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "nexus",
	Short: "nexus - spatial workspace engine",
	Long: `nexus is a panel-based workspace engine over a federated social graph.

Entities (users, city nodes, districts, streams, messages) live in a
validated in-memory store; panels are arranged in ten fixed spaces with
z-ordered stacking, tab merging, and cascade/tile layout commands.

Run "nexus ui" to open the terminal viewer over the demo catalog.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		zcfg := zap.NewProductionConfig()
		if verbose {
			zcfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = zcfg.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		if err := logging.Initialize(workspace); err != nil {
			return fmt.Errorf("failed to initialize category logging: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logging.CloseAll()
		if logger != nil {
			_ = logger.Sync()
		}
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

// uiCmd opens the terminal viewer over a seeded (or restored) session.
var uiCmd = &cobra.Command{
	Use:   "ui",
	Short: "Open the terminal workspace viewer",
	Long: `Builds a session and opens the read-only viewer.

By default the session starts from the demo catalog. With --restore the
session is loaded from the snapshot store instead.`,
	RunE: runUI,
}

// demoCmd seeds a session, pumps simulated traffic, and prints a summary.
var demoCmd = &cobra.Command{
	Use:   "demo",
	Short: "Run the demo catalog through the engine",
	RunE:  runDemo,
}

// saveCmd snapshots a seeded session to the configured store.
var saveCmd = &cobra.Command{
	Use:   "save",
	Short: "Seed a session and save it to the snapshot store",
	RunE:  runSave,
}

// statusCmd reports the configured workspace and snapshot store.
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show nexus configuration status",
	RunE:  runStatus,
}

var (
	restoreFlag bool
	pulseCount  int
	watchConfig bool
)

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVarP(&workspace, "workspace", "w", ".", "Workspace directory")

	uiCmd.Flags().BoolVar(&restoreFlag, "restore", false, "Restore the session from the snapshot store")
	uiCmd.Flags().BoolVar(&watchConfig, "watch-config", false, "Reload config on change while the viewer runs")
	demoCmd.Flags().IntVar(&pulseCount, "pulses", 5, "Simulated messages to pump into the central stream")

	rootCmd.AddCommand(uiCmd)
	rootCmd.AddCommand(demoCmd)
	rootCmd.AddCommand(saveCmd)
	rootCmd.AddCommand(statusCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func buildSession() (*session.State, *config.Config, error) {
	cfg, err := config.Load(workspace)
	if err != nil {
		return nil, nil, err
	}
	return session.New(cfg), cfg, nil
}

func runUI(cmd *cobra.Command, args []string) error {
	st, cfg, err := buildSession()
	if err != nil {
		return err
	}

	if restoreFlag {
		store, err := snapshot.Open(cfg.Snapshot.Path)
		if err != nil {
			return err
		}
		defer store.Close()
		if err := store.Load(st); err != nil {
			return fmt.Errorf("failed to restore session: %w", err)
		}
		logger.Info("Session restored", zap.String("path", store.Path()))
	} else {
		if err := seed.Apply(st); err != nil {
			return fmt.Errorf("failed to seed session: %w", err)
		}
	}

	if watchConfig {
		watcher, err := config.NewWatcher(workspace, func(next *config.Config) {
			st.ApplyConfig(next)
			_ = logging.ReloadConfig()
		})
		if err != nil {
			return err
		}
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		if err := watcher.Start(ctx); err != nil {
			return err
		}
		defer watcher.Stop()
	}

	return ui.Run(st)
}

func runDemo(cmd *cobra.Command, args []string) error {
	st, _, err := buildSession()
	if err != nil {
		return err
	}
	if err := seed.Apply(st); err != nil {
		return fmt.Errorf("failed to seed session: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("Received shutdown signal")
		cancel()
	}()

	pump := feed.NewPump(st,
		&feed.SimSource{StreamID: "s1", AuthorID: "3", Count: pulseCount, Start: seed.BaseTime.Add(time.Minute)},
		// references a stream that does not exist; every event must be rejected
		&feed.SimSource{StreamID: "s0", AuthorID: "3", Count: 2, Start: seed.BaseTime.Add(time.Minute)},
	)
	if err := pump.Run(ctx); err != nil {
		return fmt.Errorf("feed pump failed: %w", err)
	}
	stats := pump.Stats()
	logger.Info("Feed pump drained",
		zap.Int("applied", stats.Applied),
		zap.Int("rejected", stats.Rejected))

	msgs, err := st.MessagesFor("s1")
	if err != nil {
		return err
	}
	fmt.Printf("Seeded session: %d users, %d nodes, %d modules\n",
		len(st.Users()), len(st.Nodes()), len(st.Modules()))
	fmt.Printf("Central stream now holds %d messages (%d applied, %d rejected by integrity checks)\n",
		len(msgs), stats.Applied, stats.Rejected)
	for _, spaceID := range types.AllSpaceIDs() {
		panels, err := st.LayoutOf(spaceID)
		if err != nil {
			return err
		}
		fmt.Printf("Space %-12s %d panels\n", spaceID, len(panels))
	}
	return nil
}

func runSave(cmd *cobra.Command, args []string) error {
	st, cfg, err := buildSession()
	if err != nil {
		return err
	}
	if err := seed.Apply(st); err != nil {
		return fmt.Errorf("failed to seed session: %w", err)
	}

	store, err := snapshot.Open(cfg.Snapshot.Path)
	if err != nil {
		return err
	}
	defer store.Close()
	if err := store.Save(st); err != nil {
		return err
	}
	logger.Info("Snapshot saved", zap.String("path", store.Path()))
	fmt.Printf("Snapshot saved to %s\n", store.Path())
	return nil
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(workspace)
	if err != nil {
		return err
	}
	fmt.Printf("Workspace:      %s\n", workspace)
	fmt.Printf("Config file:    %s\n", config.Path(workspace))
	fmt.Printf("Snapshot store: %s\n", cfg.Snapshot.Path)
	fmt.Printf("Cascade step:   %d\n", cfg.Workspace.CascadeStep)
	fmt.Printf("Debug logging:  %v\n", logging.IsDebugMode())
	return nil
}
