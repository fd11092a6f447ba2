package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/spf13/cobra"
)

var enrollCmd = &cobra.Command{
	Use:   "enroll <user-id> <image>...",
	Short: "Enroll a user from one or more face images",
	Long: `Enroll a user by extracting a face embedding from each given image.
Multiple images of the same person (different angles, lighting) improve
matching accuracy. Repeated runs accumulate embeddings.`,
	Args: cobra.MinimumNArgs(2),
	RunE: runEnroll,
}

func init() {
	rootCmd.AddCommand(enrollCmd)
}

func runEnroll(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	ctx := context.Background()

	svc, closeStores, err := newService(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStores()

	userID := args[0]
	for _, path := range args[1:] {
		image, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("reading %s: %w", path, err)
		}

		result, err := svc.Enroll(ctx, userID, image)
		if err != nil {
			return fmt.Errorf("enrolling from %s: %w", path, err)
		}
		fmt.Printf("Enrolled %s from %s (%d embedding(s) total)\n", result.UserID, path, result.Embeddings)
	}
	return nil
}
