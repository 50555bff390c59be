package commands

import (
	"fmt"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/voxauth/voxauth/pkg/classify"
	"github.com/voxauth/voxauth/pkg/cli"
)

var trainCmd = &cobra.Command{
	Use:   "train",
	Short: "Train the secondary classifier on all enrolled samples",
	Long: `Train the convolutional classifier on a snapshot of all enrolled
samples. At least two identities with one sample each are required.

The trained model is versioned and published to the configured model
store; verification keeps using similarity matching, with the
classifier logged as a second opinion.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		auth, cleanup, err := openAuthenticator(cmd.Context())
		if err != nil {
			return err
		}
		defer cleanup()

		var bar *progressbar.ProgressBar
		progress := func(epoch, total int, trainLoss, valLoss, valAcc float64) {
			if bar == nil {
				bar = progressbar.NewOptions(total,
					progressbar.OptionEnableColorCodes(true),
					progressbar.OptionSetWidth(40),
					progressbar.OptionShowCount(),
					progressbar.OptionSetDescription("[cyan]Training[reset]"),
					progressbar.OptionSetTheme(progressbar.Theme{
						Saucer:        "[green]=[reset]",
						SaucerHead:    "[green]>[reset]",
						SaucerPadding: " ",
						BarStart:      "[",
						BarEnd:        "]",
					}),
					progressbar.OptionOnCompletion(func() { fmt.Println() }),
				)
			}
			bar.Set(epoch)
			cli.PrintVerbose(verbose, "epoch %d/%d train_loss=%.4f val_loss=%.4f val_acc=%.3f",
				epoch, total, trainLoss, valLoss, valAcc)
		}

		start := time.Now()
		model, report, err := auth.Train(cmd.Context(), classify.WithProgress(progress))
		if err != nil {
			return err
		}
		if bar != nil {
			bar.Finish()
		}

		cli.PrintSuccess("trained model %s in %s", model.Version(), cli.FormatDuration(time.Since(start)))
		fmt.Println(styles.KV("identities", fmt.Sprintf("%d", model.NumClasses())))
		fmt.Println(styles.KV("epochs", fmt.Sprintf("%d", report.Epochs)))
		fmt.Println(styles.KV("train samples", fmt.Sprintf("%d", report.TrainSamples)))
		fmt.Println(styles.KV("val samples", fmt.Sprintf("%d", report.ValSamples)))
		fmt.Println(styles.KV("best val accuracy", fmt.Sprintf("%.3f", report.BestValAcc)))
		fmt.Println(styles.KV("best val loss", fmt.Sprintf("%.4f", report.BestValLoss)))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(trainCmd)
}
