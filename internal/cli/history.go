package cli

import (
	"context"
	"errors"

	"monitoroff/internal/storage"

	"github.com/spf13/cobra"
)

var historyCmd = cobra.Command{
	Use:   "history",
	Short: "List recent prompt sessions",
	Args:  cobra.NoArgs,
	RunE:  runHistory,
}

func init() {
	historyCmd.Flags().Int("limit", 20, "Maximum number of runs (0 lists all)")
	historyCmd.Flags().String("format", "yaml", "Output format: yaml or json")
}

// ShowHistory encodes the most recent runs, newest first
func ShowHistory(ctx context.Context, s storage.Storage, limit int, e Encoder) error {
	runs, err := s.ListRuns(ctx, limit)
	if err != nil {
		return err
	}
	if runs == nil {
		runs = []*storage.Run{}
	}
	return e.Encode(runs)
}

func runHistory(cmd *cobra.Command, _ []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	db, err := a.openHistory()
	if err != nil {
		return err
	}
	if db == nil {
		return errors.New("run history is disabled")
	}
	defer db.Close()

	limit, _ := cmd.Flags().GetInt("limit")
	format, _ := cmd.Flags().GetString("format")
	e, err := newEncoder(format, cmd.OutOrStdout())
	if err != nil {
		return err
	}
	return ShowHistory(cmd.Context(), db, limit, e)
}
