package cmd

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"lecturetube/internal/discover"
	"lecturetube/internal/extract"
	"lecturetube/internal/httputil"
)

var flagResolve bool

var discoverCmd = &cobra.Command{
	Use:   "discover <page-url>",
	Short: "Find LectureTube recordings linked from a web page",
	Long: `discover fetches an HTML page (a course site or LMS page) and prints
every LectureTube watch URL it links to or embeds. With --resolve, each
recording is resolved as if passed to the root command.`,
	Args: cobra.ExactArgs(1),
	RunE: discoverRun,
}

func init() {
	discoverCmd.Flags().BoolVar(&flagResolve, "resolve", false, "Resolve every discovered recording")
}

func discoverRun(cmd *cobra.Command, args []string) error {
	pageURL := args[0]
	if err := httputil.ValidateURL(pageURL); err != nil {
		return err
	}

	client := httputil.NewClient(cfg.Timeout.Duration, cfg.UserAgent)
	ext := extract.New(extractorOptions()...)

	urls, err := discover.Page(cmd.Context(), client, pageURL, ext.Suitable)
	if err != nil {
		return err
	}
	logger.WithFields(logrus.Fields{"page": pageURL, "found": len(urls)}).Debug("discovered")

	out := cmd.OutOrStdout()
	if len(urls) == 0 {
		fmt.Fprintln(cmd.ErrOrStderr(), "No recordings found.")
		return nil
	}

	if !flagResolve {
		for _, u := range urls {
			fmt.Fprintln(out, u)
		}
		return nil
	}

	results, err := resolveAll(cmd.Context(), urls)
	if err != nil {
		return err
	}
	return emit(out, results)
}
