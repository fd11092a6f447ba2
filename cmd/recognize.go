package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/kozaktomas/face-attendance/internal/recognizer"
	"github.com/spf13/cobra"
)

var recognizeCmd = &cobra.Command{
	Use:   "recognize <image>",
	Short: "Recognize faces in an image and log attendance",
	Args:  cobra.ExactArgs(1),
	RunE:  runRecognize,
}

func init() {
	rootCmd.AddCommand(recognizeCmd)

	recognizeCmd.Flags().String("source", "cli", "Source tag recorded with each attendance event")
	recognizeCmd.Flags().Bool("dry-run", false, "Match faces without logging attendance")
}

func runRecognize(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	ctx := context.Background()

	svc, closeStores, err := newService(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStores()

	image, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("reading %s: %w", args[0], err)
	}

	source := mustGetString(cmd, "source")
	dryRun := mustGetBool(cmd, "dry-run")

	var results []recognizer.MatchResult
	var logErr error
	if dryRun {
		results, logErr = svc.Recognize(ctx, image)
	} else {
		results, logErr = svc.RecognizeAndLog(ctx, image, source)
	}

	if len(results) == 0 {
		fmt.Println("No faces found")
		return logErr
	}

	for _, r := range results {
		status := "no match"
		if r.Known() {
			status = "matched"
		}
		fmt.Printf("%-20s distance=%.4f  box=[%d,%d,%d,%d]  %s\n",
			r.UserID, r.Distance, r.BBox.Top, r.BBox.Right, r.BBox.Bottom, r.BBox.Left, status)
	}
	return logErr
}
