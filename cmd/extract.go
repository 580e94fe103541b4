package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/charmbracelet/lipgloss"
	ltable "github.com/charmbracelet/lipgloss/table"
	"github.com/dustin/go-humanize"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"lecturetube/internal/config"
	"lecturetube/internal/extract"
	"lecturetube/internal/formats"
	"lecturetube/internal/history"
	"lecturetube/internal/httputil"
	"lecturetube/internal/media"
	"lecturetube/internal/ui"
)

// extractRun is the default command: lecturetube <url>...
func extractRun(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		return cmd.Help()
	}

	results, err := resolveAll(cmd.Context(), args)
	if err != nil {
		return err
	}
	return emit(cmd.OutOrStdout(), results)
}

// extractorOptions builds extractor options from the loaded configuration.
func extractorOptions() []extract.Option {
	return []extract.Option{
		extract.WithHTTPClient(httputil.NewClient(cfg.Timeout.Duration, cfg.UserAgent)),
		extract.WithEndpoint(cfg.Endpoint),
		extract.WithLogger(logger),
	}
}

// resolveAll extracts every URL in order, stopping at the first failure.
func resolveAll(ctx context.Context, urls []string) ([]*media.Result, error) {
	store := openHistory()
	if store != nil {
		defer store.Close()
	}

	opts := extractorOptions()
	var results []*media.Result
	for _, u := range urls {
		ext, err := extract.ForURL(u, opts...)
		if err != nil {
			return nil, err
		}

		logger.WithFields(logrus.Fields{"extractor": ext.Name(), "url": u}).Debug("resolving")
		res, err := ext.Extract(ctx, u)
		if err != nil {
			return nil, fmt.Errorf("resolving %s: %w", u, err)
		}
		logger.WithFields(logrus.Fields{"video_id": res.ID, "formats": len(res.Formats)}).Debug("resolved")

		if store != nil {
			if err := store.Save(ctx, history.FromResult(res, time.Now())); err != nil {
				logger.WithError(err).Warn("saving history failed")
			}
		}
		results = append(results, res)
	}
	return results, nil
}

// emit writes results in the mode selected by flags and config.
func emit(w io.Writer, results []*media.Result) error {
	switch {
	case flagGetURL:
		writeAllURLs(w, results)
		return nil
	case flagBest:
		return writeBestURLs(w, results)
	case flagPick:
		return pickURLs(w, results)
	default:
		return writeResults(w, results)
	}
}

// writeResults writes results as JSON or as tables, per the output setting.
func writeResults(w io.Writer, results []*media.Result) error {
	if cfg.Output == "json" {
		return writeJSON(w, results)
	}
	for i, res := range results {
		if i > 0 {
			fmt.Fprintln(w)
		}
		writeTable(w, res)
	}
	return nil
}

// writeJSON writes a single object for one result and an array otherwise.
func writeJSON(w io.Writer, results []*media.Result) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if len(results) == 1 {
		return enc.Encode(results[0])
	}
	return enc.Encode(results)
}

// writeAllURLs prints every format URL, in the order the platform lists them.
func writeAllURLs(w io.Writer, results []*media.Result) {
	for _, res := range results {
		for _, f := range res.Formats {
			fmt.Fprintln(w, f.URL)
		}
	}
}

func writeBestURLs(w io.Writer, results []*media.Result) error {
	for _, res := range results {
		best, ok := formats.Best(res.Formats)
		if !ok {
			return fmt.Errorf("no playable formats for %s", res.ID)
		}
		fmt.Fprintln(w, best.URL)
	}
	return nil
}

func pickURLs(w io.Writer, results []*media.Result) error {
	for _, res := range results {
		if len(res.Formats) == 0 {
			return fmt.Errorf("no playable formats for %s", res.ID)
		}
		sorted := sortedFormats(res.Formats)
		rows := make([][]string, len(sorted))
		for i, f := range sorted {
			rows[i] = formatRow(i, f)
		}
		title := res.Title
		if title == "" {
			title = string(res.ID)
		}
		idx, err := ui.Select(title, pickerColumns, rows)
		if err != nil {
			return err
		}
		fmt.Fprintln(w, sorted[idx].URL)
	}
	return nil
}

var formatHeaders = []string{"#", "EXT", "RESOLUTION", "FPS", "VBR", "ABR", "ASR", "SIZE", "URL"}

var pickerColumns = []ui.Column{
	{Title: "#", Width: 3},
	{Title: "Ext", Width: 5},
	{Title: "Resolution", Width: 11},
	{Title: "FPS", Width: 4},
	{Title: "VBR", Width: 6},
	{Title: "ABR", Width: 5},
	{Title: "ASR", Width: 6},
	{Title: "Size", Width: 8},
	{Title: "URL", Width: 60},
}

var labelStyle = lipgloss.NewStyle().Bold(true)

// writeTable prints a human-readable summary of res, formats worst to best.
func writeTable(w io.Writer, res *media.Result) {
	field := func(label, value string) {
		if value != "" {
			fmt.Fprintf(w, "%s %s\n", labelStyle.Render(label+":"), value)
		}
	}

	field("ID", string(res.ID))
	field("Title", res.Title)
	field("Creator", res.Creator)
	field("Series", res.Series)
	if res.Timestamp != nil {
		field("Recorded", time.Unix(*res.Timestamp, 0).UTC().Format(time.RFC3339))
	}
	if res.Duration != nil {
		field("Duration", durationLabel(*res.Duration))
	}

	if len(res.Formats) == 0 {
		fmt.Fprintln(w, "No playable formats.")
		return
	}

	sorted := sortedFormats(res.Formats)
	rows := make([][]string, len(sorted))
	for i, f := range sorted {
		rows[i] = formatRow(i, f)
	}

	t := ltable.New().
		Border(lipgloss.NormalBorder()).
		Headers(formatHeaders...).
		Rows(rows...)
	fmt.Fprintln(w, t.Render())
}

func sortedFormats(fs []media.Format) []media.Format {
	sorted := make([]media.Format, len(fs))
	copy(sorted, fs)
	formats.Sort(sorted)
	return sorted
}

func formatRow(i int, f media.Format) []string {
	size := ""
	if f.FileSize != nil && *f.FileSize >= 0 {
		size = humanize.Bytes(uint64(*f.FileSize))
	}
	return []string{
		strconv.Itoa(i),
		f.Ext,
		f.Resolution,
		optInt(f.FPS, ""),
		optInt(f.VideoBitrate, "k"),
		optInt(f.AudioBitrate, "k"),
		optInt(f.SampleRate, "Hz"),
		size,
		f.URL,
	}
}

func optInt(p *int, unit string) string {
	if p == nil {
		return ""
	}
	return strconv.Itoa(*p) + unit
}

// durationLabel renders the raw duration, read as milliseconds for display.
func durationLabel(raw int64) string {
	d := (time.Duration(raw) * time.Millisecond).Truncate(time.Second)
	return fmt.Sprintf("%s (%d)", d, raw)
}

// openHistory returns the history store, or nil when history is disabled
// or unavailable.
func openHistory() *history.Store {
	if !cfg.History {
		return nil
	}
	path, err := config.HistoryPath()
	if err != nil {
		logger.WithError(err).Warn("history disabled")
		return nil
	}
	store, err := history.Open(path)
	if err != nil {
		logger.WithError(err).Warn("history disabled")
		return nil
	}
	return store
}
