package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

// errNotScrapable is returned by the check command so the exit status reflects
// the verdict.
var errNotScrapable = errors.New("website is not scrappable")

func newCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check <url>",
		Short: "Reports whether robots.txt permits scraping a URL",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			appInstance, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			if !appInstance.Checker().Allowed(cmd.Context(), args[0]) {
				return errNotScrapable
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), "Website is scrappable")
			return err
		},
	}
}
