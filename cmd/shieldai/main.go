// Command shieldai is the unprivileged CLI client: a stand-in for the
// out-of-scope graphical interface, exercising the same IPC contract a GUI
// would use (spec.md §4.12). Structured the way mutagen's own CLI dials
// its daemon: a cobra command tree, each subcommand opening a short-lived
// connection to issue one request.
package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/Abdullahalhasan627/ShieldAI-sub000/pkg/daemon"
	"github.com/Abdullahalhasan627/ShieldAI-sub000/pkg/ipc"
)

var globalConfiguration struct {
	stateDir string
}

func dial() (*ipc.Client, error) {
	socketPath, err := daemon.SocketPath(globalConfiguration.stateDir)
	if err != nil {
		return nil, err
	}
	client, err := ipc.Dial(socketPath)
	if err != nil {
		return nil, errors.Wrap(err, "unable to reach shieldai-agent (is it running?)")
	}
	return client, nil
}

func statusMain(_ *cobra.Command, _ []string) error {
	client, err := dial()
	if err != nil {
		return err
	}
	defer client.Close()

	var status ipc.GetStatusResponse
	if err := client.Call(ipc.CommandGetStatus, nil, &status); err != nil {
		return err
	}

	state := color.RedString("disabled")
	if status.EnableRealTimeProtection {
		state = color.GreenString("enabled")
	}
	fmt.Printf("Real-time protection: %s\n", state)
	fmt.Printf("Uptime:               %.0fs\n", status.UptimeSeconds)
	fmt.Printf("Events seen:          %d\n", status.EventsSeen)
	fmt.Printf("Threats blocked:      %d\n", status.ThreatsBlocked)
	fmt.Printf("Files quarantined:    %d\n", status.FilesQuarantined)
	fmt.Printf("Pending threats:      %d\n", status.PendingThreats)
	fmt.Printf("Connected sessions:   %d\n", status.ConnectedSessions)
	return nil
}

func scanMain(_ *cobra.Command, arguments []string) error {
	client, err := dial()
	if err != nil {
		return err
	}
	defer client.Close()

	var response ipc.StartScanResponse
	request := ipc.StartScanRequest{Roots: arguments, Recursive: scanConfiguration.recursive}
	if err := client.Call(ipc.CommandStartScan, request, &response); err != nil {
		return err
	}
	fmt.Printf("Started scan job %s\n", response.JobID)
	return nil
}

func scanProgressMain(_ *cobra.Command, arguments []string) error {
	client, err := dial()
	if err != nil {
		return err
	}
	defer client.Close()

	var progress ipc.ScanProgressResponse
	if err := client.Call(ipc.CommandGetScanProgress, ipc.JobRequest{JobID: arguments[0]}, &progress); err != nil {
		return err
	}
	fmt.Printf("%s: %s (%d/%d scanned, %d threats, %d errors)\n",
		progress.JobID, progress.Status, progress.Scanned, progress.Total, progress.Threats, progress.Errors)
	return nil
}

func quarantineListMain(_ *cobra.Command, _ []string) error {
	client, err := dial()
	if err != nil {
		return err
	}
	defer client.Close()

	var list ipc.ListQuarantineResponse
	if err := client.Call(ipc.CommandListQuarantine, nil, &list); err != nil {
		return err
	}
	for _, entry := range list.Entries {
		fmt.Printf("%s  %s  %s  %d bytes  %s\n",
			entry.ID, entry.QuarantinedAt.Format("2006-01-02 15:04:05"), entry.ThreatName, entry.Size, entry.OriginalPath)
	}
	return nil
}

func quarantineRestoreMain(_ *cobra.Command, arguments []string) error {
	client, err := dial()
	if err != nil {
		return err
	}
	defer client.Close()

	request := ipc.QuarantineIDRequest{ID: arguments[0], Destination: arguments[1]}
	return client.Call(ipc.CommandRestoreFromQuarantine, request, nil)
}

func quarantineDeleteMain(_ *cobra.Command, arguments []string) error {
	client, err := dial()
	if err != nil {
		return err
	}
	defer client.Close()

	return client.Call(ipc.CommandDeleteFromQuarantine, ipc.QuarantineIDRequest{ID: arguments[0]}, nil)
}

var statusCommand = &cobra.Command{
	Use: "status", Short: "Show agent status", Args: cobra.NoArgs, RunE: statusMain, SilenceUsage: true,
}

var scanConfiguration struct {
	recursive bool
}

var scanCommand = &cobra.Command{
	Use: "scan [paths...]", Short: "Start an on-demand scan", Args: cobra.MinimumNArgs(1), RunE: scanMain, SilenceUsage: true,
}

var scanProgressCommand = &cobra.Command{
	Use: "scan-progress [job-id]", Short: "Show an in-progress scan's status", Args: cobra.ExactArgs(1), RunE: scanProgressMain, SilenceUsage: true,
}

var quarantineCommand = &cobra.Command{
	Use: "quarantine", Short: "Inspect and manage quarantined files",
}

var quarantineListCommand = &cobra.Command{
	Use: "list", Short: "List quarantined files", Args: cobra.NoArgs, RunE: quarantineListMain, SilenceUsage: true,
}

var quarantineRestoreCommand = &cobra.Command{
	Use: "restore [id] [destination]", Short: "Restore a quarantined file", Args: cobra.ExactArgs(2), RunE: quarantineRestoreMain, SilenceUsage: true,
}

var quarantineDeleteCommand = &cobra.Command{
	Use: "delete [id]", Short: "Permanently delete a quarantined file", Args: cobra.ExactArgs(1), RunE: quarantineDeleteMain, SilenceUsage: true,
}

var rootCommand = &cobra.Command{
	Use:   "shieldai",
	Short: "ShieldAI command line client",
}

func init() {
	scanCommand.Flags().BoolVar(&scanConfiguration.recursive, "recursive", true, "scan directories recursively")

	rootCommand.PersistentFlags().StringVar(&globalConfiguration.stateDir, "state-dir", "/var/lib/shieldai", "directory holding the agent's IPC socket")

	quarantineCommand.AddCommand(quarantineListCommand, quarantineRestoreCommand, quarantineDeleteCommand)
	rootCommand.AddCommand(statusCommand, scanCommand, scanProgressCommand, quarantineCommand)
}

func main() {
	if err := rootCommand.Execute(); err != nil {
		os.Exit(1)
	}
}
