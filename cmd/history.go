package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"cowboy-strava/internal/store"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List trips already synced",
	Args:  cobra.NoArgs,
	RunE:  runHistory,
}

func init() {
	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	db, err := store.Open()
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	trips, err := db.ListProcessed()
	if err != nil {
		return fmt.Errorf("listing processed trips: %w", err)
	}

	if len(trips) == 0 {
		fmt.Println("No trips synced yet.")
		return nil
	}

	for _, t := range trips {
		fmt.Printf("%s\ttrip %d\t%s\t%s\n", t.UID, t.TripID, t.Mode, t.ProcessedAt.Format("2006-01-02 15:04"))
	}
	return nil
}
