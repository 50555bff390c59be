package commands

import (
	"github.com/spf13/cobra"

	"github.com/voxauth/voxauth/pkg/cli"
)

var enrollCmd = &cobra.Command{
	Use:   "enroll <identity> <wav-file>...",
	Short: "Enroll voice samples for an identity",
	Long: `Enroll one or more WAV recordings as reference samples.

Each clip is normalized, encoded, and stored under the identity. More
samples improve matching: verification scores a probe against every
enrolled sample and keeps the best.`,
	Args: cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		auth, cleanup, err := openAuthenticator(cmd.Context())
		if err != nil {
			return err
		}
		defer cleanup()

		identity := args[0]
		for _, path := range args[1:] {
			clip, err := loadClip(path)
			if err != nil {
				return err
			}
			sample, err := auth.Enroll(cmd.Context(), identity, clip)
			if err != nil {
				return err
			}
			cli.PrintSuccess("enrolled %s for %s (sample %s, %s of audio)",
				path, identity, sample.ID, cli.FormatDuration(clip.Duration()))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(enrollCmd)
}
