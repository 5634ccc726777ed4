package commands

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

func fetchCmd(g *globals) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "fetch [short-link|id]",
		Short: "Stream the target of a short link to stdout or a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			var w io.Writer = g.out

			if output != "" && output != "-" {
				f, createErr := os.Create(output)
				if createErr != nil {
					return createErr
				}
				defer func() {
					if cerr := f.Close(); err == nil {
						err = cerr
					}
				}()
				w = f
			}

			n, err := g.client().fetch(cmd.Context(), args[0], w)
			if err != nil {
				return err
			}

			if output != "" && output != "-" {
				fmt.Fprintf(cmd.ErrOrStderr(), "wrote %d bytes to %s\n", n, output)
			}

			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "write the body to file instead of stdout")

	return cmd
}
