package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matzehuels/cratewatch/pkg/config"
	"github.com/matzehuels/cratewatch/pkg/crate"
	"github.com/matzehuels/cratewatch/pkg/errors"
)

func (c *CLI) followCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "follow <crate>",
		Short: "Follow a crate with your crates.io account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runWrite(cmd.Context(), args[0], "Following", func(ctx context.Context, agg *crate.Aggregate) (*crate.WriteResponse, error) {
				return agg.Follow(ctx)
			})
		},
	}
}

func (c *CLI) unfollowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "unfollow <crate>",
		Short: "Stop following a crate",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runWrite(cmd.Context(), args[0], "Unfollowed", func(ctx context.Context, agg *crate.Aggregate) (*crate.WriteResponse, error) {
				return agg.Unfollow(ctx)
			})
		},
	}
}

// ownerCommand creates the "owner" command with invite and remove.
func (c *CLI) ownerCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "owner",
		Short: "Invite or remove crate owners",
		Long: `Invite or remove crate owners. Users are given by login, teams as
github:org:team. Changes are not reflected locally until owners are loaded
again, which the commands do after a successful write.`,
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "invite <crate> <login>",
		Short: "Invite a user or team to own a crate",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runOwnerWrite(cmd.Context(), args[0], args[1], true)
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "remove <crate> <login>",
		Short: "Remove an owner from a crate",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runOwnerWrite(cmd.Context(), args[0], args[1], false)
		},
	})

	return cmd
}

type writeFunc func(ctx context.Context, agg *crate.Aggregate) (*crate.WriteResponse, error)

func (c *CLI) runWrite(ctx context.Context, name, verb string, write writeFunc) error {
	if c.token(ctx) == "" {
		return errors.New(errors.ErrCodeUnauthorized, "no API token (run '%s login' or set %s)", appName, config.TokenEnv)
	}
	agg, closeFn, err := c.aggregate(ctx, name)
	if err != nil {
		return err
	}
	defer closeFn()

	res, err := write(ctx, agg)
	if err != nil {
		return err
	}
	if !res.OK {
		return fmt.Errorf("registry answered %d: %s", res.Status, res.Message)
	}
	printSuccess("%s %s", verb, agg.Name())
	return nil
}

func (c *CLI) runOwnerWrite(ctx context.Context, name, login string, invite bool) error {
	verb, op := "Removed", (*crate.Aggregate).RemoveOwner
	if invite {
		verb, op = "Invited", (*crate.Aggregate).InviteOwner
	}

	var agg *crate.Aggregate
	err := c.runWrite(ctx, name, verb+" "+login+" for", func(ctx context.Context, a *crate.Aggregate) (*crate.WriteResponse, error) {
		agg = a
		return op(a, ctx, login)
	})
	if err != nil {
		return err
	}

	owners, err := agg.LoadOwners(ctx)
	if err != nil {
		c.Logger.Warn("could not reload owners", "err", err)
		return nil
	}
	for _, o := range owners {
		printDetail("%s %s", o.Kind, o.Login)
	}
	return nil
}
