package cli

import (
	"github.com/spf13/cobra"

	"github.com/matzehuels/cratewatch/internal/server"
)

func (c *CLI) serveCommand() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve crate views over a JSON HTTP API",
		Long: `Serve crate views over a JSON HTTP API.

Routes:
  GET    /crates/{name}
  GET    /crates/{name}/versions?sort=semver|date&reload=true
  GET    /crates/{name}/release-tracks
  GET    /crates/{name}/owners
  PUT    /crates/{name}/follow
  DELETE /crates/{name}/follow
  PUT    /crates/{name}/owners/{login}
  DELETE /crates/{name}/owners/{login}

Aggregates are kept in memory for the lifetime of the process.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			store, closeFn, err := c.newStore(ctx)
			if err != nil {
				return err
			}
			defer closeFn()

			if addr == "" {
				addr = c.config().Server.Addr
			}
			return server.New(store, c.Logger).ListenAndServe(ctx, addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config)")
	return cmd
}
