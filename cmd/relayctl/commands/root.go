// Package commands implements relayctl, a command line client of the relay.
package commands

import (
	"io"
	"net/http"
	"time"

	"github.com/spf13/cobra"
)

const defaultServer = "http://localhost:8080"

type globals struct {
	server  string
	token   string
	timeout time.Duration
	out     io.Writer
}

func (g *globals) client() *client {
	return &client{
		server: g.server,
		token:  g.token,
		http:   &http.Client{Timeout: g.timeout},
	}
}

// NewRoot builds the relayctl command tree. Output goes to out and the
// default token is read from BEARER_AUTH through getenv.
func NewRoot(out io.Writer, getenv func(string) string) *cobra.Command {
	g := &globals{out: out}

	root := &cobra.Command{
		Use:           "relayctl",
		Short:         "Register and fetch relay short links",
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	root.SetOut(out)

	root.PersistentFlags().StringVar(&g.server, "server", defaultServer, "relay base URL")
	root.PersistentFlags().StringVar(&g.token, "token", getenv("BEARER_AUTH"), "bearer token (default $BEARER_AUTH)")
	root.PersistentFlags().DurationVar(&g.timeout, "timeout", 0, "overall request timeout, 0 means none")

	root.AddCommand(registerCmd(g), fetchCmd(g))
	return root
}
