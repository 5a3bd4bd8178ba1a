package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"cowboy-strava/internal/config"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create an example config file",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := config.CreateExample(); err != nil {
			return fmt.Errorf("creating example config: %w", err)
		}
		configDir, _ := config.GetConfigDir()
		fmt.Printf("Config file ready at %s/config.json\n", configDir)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
