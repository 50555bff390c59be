package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/voxauth/voxauth/pkg/cli"
)

var (
	identityName  string
	identityEmail string
)

var identityCmd = &cobra.Command{
	Use:   "identity",
	Short: "Manage enrolled identities",
}

var identityAddCmd = &cobra.Command{
	Use:   "add <id>",
	Short: "Register a new identity",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		auth, cleanup, err := openAuthenticator(cmd.Context())
		if err != nil {
			return err
		}
		defer cleanup()

		id := args[0]
		name := identityName
		if name == "" {
			name = id
		}
		if err := auth.Store().RegisterIdentity(cmd.Context(), id, name, identityEmail); err != nil {
			return err
		}
		cli.PrintSuccess("registered identity %s", id)
		return nil
	},
}

var identityListCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered identities",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		auth, cleanup, err := openAuthenticator(cmd.Context())
		if err != nil {
			return err
		}
		defer cleanup()

		identities, err := auth.Store().Identities(cmd.Context())
		if err != nil {
			return err
		}
		if outputFormat != "" {
			return cli.Output(identities, cli.OutputOptions{Format: cli.OutputFormat(outputFormat)})
		}

		if len(identities) == 0 {
			cli.PrintInfo("no identities registered")
			return nil
		}
		for _, id := range identities {
			tpl, err := auth.Store().Template(cmd.Context(), id.ID)
			samples := 0
			if err == nil {
				samples = len(tpl.Samples)
			}
			fmt.Printf("%s  %s  (%d samples, registered %s)\n",
				styles.Label.Render(id.ID), id.Name, samples,
				id.CreatedAt.Format("2006-01-02"))
		}
		return nil
	},
}

var identityRemoveCmd = &cobra.Command{
	Use:   "remove <id>",
	Short: "Remove an identity and its enrolled samples",
	Long: `Remove an identity and its enrolled samples.

Audit log entries for the identity are kept. A trained classifier that
included the identity keeps working but should be retrained.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		auth, cleanup, err := openAuthenticator(cmd.Context())
		if err != nil {
			return err
		}
		defer cleanup()

		if err := auth.Store().RemoveIdentity(cmd.Context(), args[0]); err != nil {
			return err
		}
		cli.PrintSuccess("removed identity %s", args[0])
		return nil
	},
}

func init() {
	identityAddCmd.Flags().StringVar(&identityName, "name", "", "display name (defaults to the id)")
	identityAddCmd.Flags().StringVar(&identityEmail, "email", "", "contact email")

	identityCmd.AddCommand(identityAddCmd)
	identityCmd.AddCommand(identityListCmd)
	identityCmd.AddCommand(identityRemoveCmd)
	rootCmd.AddCommand(identityCmd)
}
