package cmd

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/oauth2"

	"cowboy-strava/internal/auth"
	"cowboy-strava/internal/config"
	"cowboy-strava/internal/cowboy"
	"cowboy-strava/internal/service"
	"cowboy-strava/internal/store"
	"cowboy-strava/internal/strava"
)

var (
	syncTripID    int64
	syncDays      int
	syncDryRun    bool
	syncExportDir string
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Run one synchronization pass",
	Args:  cobra.NoArgs,
	RunE:  runSync,
}

func init() {
	syncCmd.Flags().Int64Var(&syncTripID, "trip", 0, "force re-processing of a single trip id")
	syncCmd.Flags().IntVar(&syncDays, "days", 0, "override the configured lookback window in days")
	syncCmd.Flags().BoolVar(&syncDryRun, "dry-run", false, "classify and build but do not upload or record history")
	syncCmd.Flags().StringVar(&syncExportDir, "export", "", "also write built TCX files to this directory")
	rootCmd.AddCommand(syncCmd)
}

func runSync(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil || cfg == nil {
		return err
	}

	db, err := store.Open()
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	storedAuth, err := db.GetAuth()
	if errors.Is(err, store.ErrNoAuth) {
		fmt.Println("No Strava tokens stored. Seed them first:")
		fmt.Println("  cowboy-strava token <refresh-token>")
		return nil
	}
	if err != nil {
		return fmt.Errorf("checking auth: %w", err)
	}

	oauthCfg := auth.NewOAuthConfig(cfg.Strava.ClientID, cfg.Strava.ClientSecret)
	tokenSource := auth.NewTokenSource(oauthCfg, &oauth2.Token{
		AccessToken:  storedAuth.AccessToken,
		RefreshToken: storedAuth.RefreshToken,
		Expiry:       storedAuth.ExpiresAt,
	}, func(newToken *oauth2.Token) error {
		return db.UpdateTokens(newToken.AccessToken, newToken.RefreshToken, newToken.Expiry)
	})

	cowboyClient := cowboy.NewClient("")
	sessions := auth.NewSessionSource(cowboyClient, db, cfg.Cowboy.Email, cfg.Cowboy.Password)
	stravaClient := strava.NewClient(tokenSource)

	opts := service.Options{
		LookbackDays: cfg.Sync.LookbackDays,
		Grace:        time.Duration(cfg.Sync.GraceMinutes) * time.Minute,
		WattsFilter:  cfg.Sync.WattsFilter,
		ExportDir:    cfg.Sync.ExportDir,
		DryRun:       syncDryRun,
		TripID:       syncTripID,
	}
	if syncDays > 0 {
		opts.LookbackDays = syncDays
	}
	if syncExportDir != "" {
		opts.ExportDir = syncExportDir
	}

	svc := service.New(cowboyClient, sessions, stravaClient, db, opts, newLogger())

	result, err := svc.Run(cmd.Context())
	if err != nil {
		return err
	}

	fmt.Printf("Uploaded %d tracks, %d summaries; %d skipped, %d deferred, %d errors\n",
		result.Uploaded, result.Simple, result.Skipped, result.Deferred, len(result.Errors))
	if len(result.Errors) > 0 {
		return fmt.Errorf("%d trips failed", len(result.Errors))
	}
	return nil
}

// loadConfig loads and validates the config file, creating an example
// one on first use. A nil config with nil error means the user still
// needs to fill the file in.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if errors.Is(err, config.ErrNoConfig) {
		fmt.Println("No config file found. Creating example config...")
		if err := config.CreateExample(); err != nil {
			return nil, fmt.Errorf("creating example config: %w", err)
		}
		configDir, _ := config.GetConfigDir()
		fmt.Printf("\nPlease edit the config file at:\n  %s/config.json\n", configDir)
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		configDir, _ := config.GetConfigDir()
		fmt.Printf("Config validation failed: %v\n\n", err)
		fmt.Printf("Please edit the config file at:\n  %s/config.json\n", configDir)
		return nil, nil
	}

	return cfg, nil
}
