package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"cowboy-strava/internal/store"
)

var tokenCmd = &cobra.Command{
	Use:   "token <refresh-token>",
	Short: "Seed the stored Strava refresh token",
	Long: `Stores a Strava refresh token obtained out of band (for example via
the Strava API playground). The first sync exchanges it for an access
token and keeps both rotated from then on.`,
	Args: cobra.ExactArgs(1),
	RunE: runToken,
}

func init() {
	rootCmd.AddCommand(tokenCmd)
}

func runToken(cmd *cobra.Command, args []string) error {
	db, err := store.Open()
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	// An already-expired expiry forces a refresh on first use.
	err = db.SaveAuth(&store.Auth{
		RefreshToken: args[0],
		ExpiresAt:    time.Unix(0, 0),
	})
	if err != nil {
		return fmt.Errorf("saving token: %w", err)
	}

	fmt.Println("Refresh token stored.")
	return nil
}
