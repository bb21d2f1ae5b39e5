package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newScrapeCmd() *cobra.Command {
	var rendered bool

	cmd := &cobra.Command{
		Use:   "scrape <url>",
		Short: "Prints the text of a page",
		Long: `Fetches a page and prints its text. With --rendered the page is loaded in a
headless browser and its visible text is saved for later queries; otherwise a
plain GET is made and nothing is saved.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			appInstance, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			scraper := appInstance.Scraper()

			var text string
			if rendered {
				record, err := scraper.Render(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				text = record.Content
			} else {
				text, err = scraper.Direct(cmd.Context(), args[0])
				if err != nil {
					return err
				}
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), text)
			return err
		},
	}
	cmd.Flags().BoolVar(&rendered, "rendered", false, "render in a headless browser and save the result")
	return cmd
}
