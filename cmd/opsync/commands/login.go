package commands

import (
	"fmt"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/openpaint/cloudsync/auth"
	"github.com/openpaint/cloudsync/config"
)

// LoginCmd stores a session token for cloud access.
var LoginCmd = &cobra.Command{
	Use:   "login",
	Short: "Store a session token for cloud access",
	Long: `Store a session token obtained from the OpenPaint web app.

The token is written to the session file (auth.token_path) and read on every
cloud request, so a new login takes effect immediately.

Examples:
  opsync login --token "$OPENPAINT_TOKEN"
  opsync login --token "$TOKEN" --user-id user-42`,
	RunE: runLogin,
}

// LogoutCmd removes the stored session.
var LogoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Remove the stored session",
	RunE:  runLogout,
}

var (
	loginTokenFlag  string
	loginUserIDFlag string
)

func init() {
	LoginCmd.Flags().StringVar(&loginTokenFlag, "token", "", "Session token (JWT) from the OpenPaint web app")
	LoginCmd.Flags().StringVar(&loginUserIDFlag, "user-id", "", "Override the user ID (default: token subject)")
	_ = LoginCmd.MarkFlagRequired("token")
}

func runLogin(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	if err := auth.WriteSession(cfg.Auth.TokenPath, loginTokenFlag, loginUserIDFlag); err != nil {
		return err
	}

	// Validate immediately so an expired token fails at login, not at the
	// first save.
	session, err := auth.NewFileSessionProvider(cfg.Auth.TokenPath).ActiveSession()
	if err != nil {
		_ = auth.ClearSession(cfg.Auth.TokenPath)
		return fmt.Errorf("token rejected: %w", err)
	}

	pterm.Success.Printf("Logged in as %s\n", session.UserID)
	return nil
}

func runLogout(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := auth.ClearSession(cfg.Auth.TokenPath); err != nil {
		return err
	}
	pterm.Info.Println("Logged out")
	return nil
}
