package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/openpaint/cloudsync/cmd/opsync/commands"
	"github.com/openpaint/cloudsync/logger"
)

var rootCmd = &cobra.Command{
	Use:   "opsync",
	Short: "opsync - OpenPaint cloud project synchronization",
	Long: `opsync - Synchronize annotated image projects with the cloud store.

Projects are saved as a versioned manifest plus one state document per view.
Image data is deduplicated by content hash and uploaded at most once; patches
use optimistic concurrency, so concurrent edits from other devices are
detected and retried instead of silently overwritten.

Available commands:
  login    - Store a session token for cloud access
  logout   - Remove the stored session
  save     - Push a local project to the cloud
  load     - Pull a cloud project into a local directory
  projects - List and create cloud projects
  check    - Evaluate measurement formula checks
  cache    - Inspect and prune the local asset cache

Examples:
  opsync login --token "$TOKEN"
  opsync save ./project.json
  opsync load proj-42 --out ./restored
  opsync projects list --search sofa
  opsync cache stats`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		jsonLogs, _ := cmd.Flags().GetBool("json-logs")
		if err := logger.Initialize(jsonLogs); err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().Bool("json-logs", false, "Emit logs as JSON instead of console output")
	rootCmd.PersistentFlags().CountP("verbose", "v", "Increase output verbosity (repeat for more detail)")

	rootCmd.AddCommand(commands.LoginCmd)
	rootCmd.AddCommand(commands.LogoutCmd)
	rootCmd.AddCommand(commands.SaveCmd)
	rootCmd.AddCommand(commands.LoadCmd)
	rootCmd.AddCommand(commands.ProjectsCmd)
	rootCmd.AddCommand(commands.CheckCmd)
	rootCmd.AddCommand(commands.CacheCmd)
	rootCmd.AddCommand(commands.VersionCmd)
}

func main() {
	defer logger.Cleanup()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
