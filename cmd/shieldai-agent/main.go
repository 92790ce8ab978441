// Command shieldai-agent is the privileged background service: it owns all
// scanning state and exposes it to unprivileged callers over the local IPC
// channel (spec.md §1). Structured the way mutagen's daemon binary is
// structured: a small cobra root wired to subcommands, with the actual
// work done by an explicit build-and-run function rather than anything
// reachable from package-level state.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/Abdullahalhasan627/ShieldAI-sub000/pkg/agent"
	"github.com/Abdullahalhasan627/ShieldAI-sub000/pkg/config"
	"github.com/Abdullahalhasan627/ShieldAI-sub000/pkg/logging"
)

// version is the agent's reported version, stamped at build time via
// -ldflags in a real release pipeline; it is left as a constant here since
// that pipeline is out of scope.
const version = "0.1.0"

// terminationSignals are the signals that trigger a graceful shutdown,
// matching the set mutagen's cmd package registers for its own daemon.
var terminationSignals = []os.Signal{os.Interrupt}

func runMain(_ *cobra.Command, _ []string) error {
	logger := logging.NewLogger(runConfiguration.logLevel(), os.Stderr)

	cfg := config.Default()
	if runConfiguration.configPath != "" {
		loaded, err := config.Load(runConfiguration.configPath)
		if err != nil {
			return errors.Wrap(err, "unable to load configuration")
		}
		cfg = loaded
	}

	a, err := agent.Build(cfg, logger, runConfiguration.stateDir)
	if err != nil {
		return errors.Wrap(err, "unable to initialize agent")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, terminationSignals...)
	go func() {
		<-signals
		logger.Infof("received termination signal, shutting down")
		cancel()
	}()

	logger.Infof("shieldai-agent %s starting (state dir %s)", version, runConfiguration.stateDir)
	if err := a.Run(ctx); err != nil && ctx.Err() == nil {
		return errors.Wrap(err, "agent terminated abnormally")
	}
	return nil
}

var runCommand = &cobra.Command{
	Use:          "run",
	Short:        "Run the ShieldAI agent in the foreground",
	Args:         cobra.NoArgs,
	RunE:         runMain,
	SilenceUsage: true,
}

type runConfig struct {
	configPath   string
	stateDir     string
	logLevelName string
}

var runConfiguration runConfig

func (c *runConfig) logLevel() logging.Level {
	switch c.logLevelName {
	case "debug":
		return logging.LevelDebug
	case "warn":
		return logging.LevelWarn
	case "error":
		return logging.LevelError
	default:
		return logging.LevelInfo
	}
}

func init() {
	flags := runCommand.Flags()
	flags.SortFlags = false
	flags.StringVar(&runConfiguration.configPath, "config", "", "path to the agent's YAML configuration file")
	flags.StringVar(&runConfiguration.stateDir, "state-dir", "/var/lib/shieldai", "directory for the daemon lock, IPC socket, and quarantine key")
	flags.StringVar(&runConfiguration.logLevelName, "log-level", "info", "one of debug, info, warn, error")
}

var versionCommand = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Args:  cobra.NoArgs,
	Run: func(*cobra.Command, []string) {
		fmt.Println(version)
	},
}

var rootCommand = &cobra.Command{
	Use:   "shieldai-agent",
	Short: "ShieldAI privileged scanning and quarantine service",
}

func init() {
	rootCommand.AddCommand(runCommand, versionCommand)
}

func main() {
	if err := rootCommand.Execute(); err != nil {
		os.Exit(1)
	}
}
