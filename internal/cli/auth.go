package cli

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/cratewatch/pkg/config"
	"github.com/matzehuels/cratewatch/pkg/integrations/crates"
	"github.com/matzehuels/cratewatch/pkg/session"
)

func openTokenStore() (*session.TokenStore, error) {
	store, err := session.NewTokenStore(config.Path("sessions"))
	if err != nil {
		return nil, fmt.Errorf("open session store: %w", err)
	}
	return store, nil
}

// loginCommand creates the login command.
func (c *CLI) loginCommand() *cobra.Command {
	var token string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Store a crates.io API token",
		Long: `Store a crates.io API token for follow and owner commands.

Create a token at https://crates.io/settings/tokens. Without --token the
token is read from stdin. The token is saved with 0600 permissions under
` + config.Path("sessions") + `.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if token == "" {
				fmt.Fprint(os.Stderr, StyleDim.Render("API token: "))
				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && line == "" {
					return fmt.Errorf("read token: %w", err)
				}
				token = line
			}
			token = strings.TrimSpace(token)
			if token == "" {
				return fmt.Errorf("empty token")
			}

			store, err := openTokenStore()
			if err != nil {
				return err
			}
			sess, err := session.New(token, crates.DefaultBaseURL, 0)
			if err != nil {
				return fmt.Errorf("create session: %w", err)
			}
			if err := store.Save(cmd.Context(), sess); err != nil {
				return fmt.Errorf("save session: %w", err)
			}

			printSuccess("Token saved")
			printKeyValue("Token", sess.Masked())
			printKeyValue("File", store.Path())
			return nil
		},
	}

	cmd.Flags().StringVar(&token, "token", "", "API token (read from stdin if omitted)")
	return cmd
}

// logoutCommand creates the logout command.
func (c *CLI) logoutCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Remove the stored API token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openTokenStore()
			if err != nil {
				return err
			}
			if err := store.Delete(cmd.Context()); err != nil {
				return fmt.Errorf("delete session: %w", err)
			}
			printSuccess("Logged out")
			return nil
		},
	}
}
