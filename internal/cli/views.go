package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/matzehuels/cratewatch/pkg/crate"
)

// versionsCommand creates the "versions" command.
func (c *CLI) versionsCommand() *cobra.Command {
	var (
		sortBy string
		reload bool
		limit  int
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "versions <crate>",
		Short: "List the versions of a crate",
		Long: `List the versions of a crate, highest version first (--sort semver) or
newest first (--sort date). Release-track representatives are marked with a star.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			order, err := crate.ParseOrder(sortBy)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			agg, closeFn, err := c.aggregate(ctx, args[0])
			if err != nil {
				return err
			}
			defer closeFn()

			prog := newProgress(c.Logger)
			spinner := newSpinner("Loading versions...")
			spinner.Start()
			_, err = agg.LoadVersions(ctx, crate.LoadOptions{Reload: reload})
			if err != nil {
				spinner.StopWithError("Failed to load versions")
				return err
			}
			spinner.Stop()

			versions := agg.SortedVersions(order)
			prog.done(fmt.Sprintf("Loaded %d versions of %s", len(versions), agg.Name()))
			if limit > 0 && len(versions) > limit {
				versions = versions[:limit]
			}

			if asJSON {
				return json.NewEncoder(os.Stdout).Encode(versions)
			}
			printCrateHeader(agg.Crate())
			fmt.Println(renderVersions(agg, versions, time.Now()))
			return nil
		},
	}

	cmd.Flags().StringVar(&sortBy, "sort", string(crate.OrderSemver), "sort order: semver or date")
	cmd.Flags().BoolVar(&reload, "reload", false, "bypass the cache and fetch versions again")
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "show at most n versions (0 for all)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON instead of a table")

	return cmd
}

// tracksCommand creates the "tracks" command.
func (c *CLI) tracksCommand() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "tracks <crate>",
		Short: "Show the latest stable version of each release track",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			agg, closeFn, err := c.aggregate(ctx, args[0])
			if err != nil {
				return err
			}
			defer closeFn()

			if _, err := agg.LoadVersions(ctx, crate.LoadOptions{}); err != nil {
				return err
			}
			tracks := agg.ReleaseTracks()
			if asJSON {
				return json.NewEncoder(os.Stdout).Encode(tracks)
			}
			if len(tracks) == 0 {
				printInfo("%s has no stable release", agg.Name())
				return nil
			}
			printCrateHeader(agg.Crate())
			fmt.Println(renderTracks(tracks))
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON instead of a table")
	return cmd
}

// ownersCommand creates the "owners" command.
func (c *CLI) ownersCommand() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "owners <crate>",
		Short: "List the team and user owners of a crate",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			agg, closeFn, err := c.aggregate(ctx, args[0])
			if err != nil {
				return err
			}
			defer closeFn()

			if _, err := agg.LoadOwners(ctx); err != nil {
				return err
			}
			owners, err := agg.Owners()
			if err != nil {
				return err
			}
			if asJSON {
				return json.NewEncoder(os.Stdout).Encode(owners)
			}
			printCrateHeader(agg.Crate())
			fmt.Println(renderOwners(owners))
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON instead of a table")
	return cmd
}
