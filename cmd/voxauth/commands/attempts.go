package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/voxauth/voxauth/pkg/cli"
)

var attemptsLimit int

var attemptsCmd = &cobra.Command{
	Use:   "attempts",
	Short: "Show the verification attempt audit log",
	Long: `Show recorded verification attempts in chronological order.

Every verify and identify call is logged, including rejections and
open-set probes that matched nobody (recorded under "unknown").`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		auth, cleanup, err := openAuthenticator(cmd.Context())
		if err != nil {
			return err
		}
		defer cleanup()

		attempts, err := auth.Store().Attempts(cmd.Context())
		if err != nil {
			return err
		}
		if attemptsLimit > 0 && len(attempts) > attemptsLimit {
			attempts = attempts[len(attempts)-attemptsLimit:]
		}
		if outputFormat != "" {
			return cli.Output(attempts, cli.OutputOptions{Format: cli.OutputFormat(outputFormat)})
		}

		if len(attempts) == 0 {
			cli.PrintInfo("no attempts recorded")
			return nil
		}
		for _, a := range attempts {
			outcome := styles.Dim.Render("denied")
			if a.Success {
				outcome = styles.Label.Render("granted")
			}
			fmt.Printf("%s  %-20s %s  score %.4f\n",
				a.At.Format("2006-01-02 15:04:05"), a.Identity, outcome, a.Score)
		}
		return nil
	},
}

func init() {
	attemptsCmd.Flags().IntVarP(&attemptsLimit, "limit", "n", 0, "show only the most recent N attempts")
	rootCmd.AddCommand(attemptsCmd)
}
