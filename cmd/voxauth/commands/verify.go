package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/voxauth/voxauth/pkg/cli"
	"github.com/voxauth/voxauth/pkg/verify"
)

var verifyCmd = &cobra.Command{
	Use:   "verify <identity> <wav-file>",
	Short: "Verify a claimed identity against its enrolled samples",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		auth, cleanup, err := openAuthenticator(cmd.Context())
		if err != nil {
			return err
		}
		defer cleanup()

		clip, err := loadClip(args[1])
		if err != nil {
			return err
		}
		result, err := auth.Verify(cmd.Context(), args[0], clip)
		if err != nil {
			return err
		}
		return printResult(result)
	},
}

var identifyCmd = &cobra.Command{
	Use:   "identify <wav-file>",
	Short: "Identify the closest enrolled speaker for a recording",
	Long: `Identify which enrolled speaker a recording belongs to, if any.

All enrolled identities are ranked by similarity. The top score decides
the outcome: a strong match is accepted, a borderline one is reported
as a possible match without granting access, and anything weaker is
rejected as an unknown speaker.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		auth, cleanup, err := openAuthenticator(cmd.Context())
		if err != nil {
			return err
		}
		defer cleanup()

		clip, err := loadClip(args[0])
		if err != nil {
			return err
		}
		result, err := auth.Identify(cmd.Context(), clip)
		if err != nil {
			return err
		}
		return printResult(result)
	},
}

func printResult(r verify.Result) error {
	if outputFormat != "" {
		return cli.Output(map[string]any{
			"decision": r.Decision.String(),
			"identity": r.Identity,
			"score":    r.Score,
			"granted":  r.Granted(),
		}, cli.OutputOptions{Format: cli.OutputFormat(outputFormat)})
	}
	fmt.Println(styles.Result(r))
	return nil
}

func init() {
	rootCmd.AddCommand(verifyCmd)
	rootCmd.AddCommand(identifyCmd)
}
