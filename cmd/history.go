package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"lecturetube/internal/config"
	"lecturetube/internal/extract"
	"lecturetube/internal/history"
	"lecturetube/internal/media"
	"lecturetube/internal/ui"
)

var flagHistoryLimit int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List previously resolved recordings",
	Long: `history lists recordings resolved earlier, newest first.
With --pick, the chosen recording is resolved again.`,
	Args: cobra.NoArgs,
	RunE: historyRun,
}

var historyRmCmd = &cobra.Command{
	Use:   "rm <video-id>",
	Short: "Remove a recording from history",
	Args:  cobra.ExactArgs(1),
	RunE:  historyRmRun,
}

func init() {
	historyCmd.Flags().IntVarP(&flagHistoryLimit, "limit", "n", 20, "Maximum entries to list (0 for all)")
	historyCmd.AddCommand(historyRmCmd)
}

func openHistoryStrict() (*history.Store, error) {
	path, err := config.HistoryPath()
	if err != nil {
		return nil, err
	}
	store, err := history.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening history: %w", err)
	}
	return store, nil
}

func historyRun(cmd *cobra.Command, args []string) error {
	store, err := openHistoryStrict()
	if err != nil {
		return err
	}
	defer store.Close()

	entries, err := store.List(cmd.Context(), flagHistoryLimit)
	if err != nil {
		return fmt.Errorf("loading history: %w", err)
	}

	out := cmd.OutOrStdout()
	if len(entries) == 0 {
		fmt.Fprintln(out, "No history entries found.")
		return nil
	}

	if !flagPick {
		writeHistory(out, entries)
		return nil
	}

	items := history.FormatForDisplay(entries)
	rows := make([][]string, len(items))
	for i, item := range items {
		rows[i] = []string{item, string(entries[i].ID)}
	}
	columns := []ui.Column{{Title: "Recording", Width: 60}, {Title: "ID", Width: 36}}

	idx, err := ui.Select("History", columns, rows)
	if err != nil {
		return err
	}

	selected := entries[idx]
	logger.WithField("video_id", selected.ID).Debug("re-resolving from history")

	results, err := resolveAll(cmd.Context(), []string{extract.WatchURL(selected.ID)})
	if err != nil {
		return err
	}
	return writeResults(out, results)
}

func writeHistory(w io.Writer, entries []media.HistoryEntry) {
	for i, line := range history.FormatForDisplay(entries) {
		fmt.Fprintf(w, "%s  %s\n", entries[i].ID, line)
	}
}

func historyRmRun(cmd *cobra.Command, args []string) error {
	store, err := openHistoryStrict()
	if err != nil {
		return err
	}
	defer store.Close()

	removed, err := store.Remove(cmd.Context(), media.VideoID(args[0]))
	if err != nil {
		return fmt.Errorf("removing %s: %w", args[0], err)
	}
	if !removed {
		return fmt.Errorf("%s is not in history", args[0])
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Removed %s\n", args[0])
	return nil
}
