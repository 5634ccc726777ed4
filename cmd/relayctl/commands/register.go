package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

func registerCmd(g *globals) *cobra.Command {
	var userAgent string

	cmd := &cobra.Command{
		Use:   "register [url]",
		Short: "Register a URL and print its short link",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			link, err := g.client().register(cmd.Context(), args[0], userAgent)
			if err != nil {
				return err
			}

			_, err = fmt.Fprintln(g.out, link)
			return err
		},
	}
	cmd.Flags().StringVar(&userAgent, "user-agent", "", "User-Agent sent to the target on every fetch")

	return cmd
}
