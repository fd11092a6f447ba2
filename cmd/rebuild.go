package cmd

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

var rebuildCmd = &cobra.Command{
	Use:   "rebuild <faces-dir>",
	Short: "Rebuild the enrollment store from a directory of face images",
	Long: `Rebuild enrollments from a directory tree laid out as

  <faces-dir>/<user-id>/*.jpg

Every image found under a user's directory is enrolled for that user.
With --replace the store is wiped first, otherwise embeddings are added
to any existing enrollments.`,
	Args: cobra.ExactArgs(1),
	RunE: runRebuild,
}

func init() {
	rootCmd.AddCommand(rebuildCmd)

	rebuildCmd.Flags().Bool("replace", false, "Wipe existing enrollments before rebuilding")
}

var imageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".webp": true,
}

// collectFaceImages walks root and returns user-id -> image paths.
func collectFaceImages(root string) (map[string][]string, error) {
	images := make(map[string][]string)
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if !imageExtensions[strings.ToLower(filepath.Ext(path))] {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		// The first path element names the user.
		parts := strings.SplitN(filepath.ToSlash(rel), "/", 2)
		if len(parts) != 2 {
			return nil // image directly under root, no user directory
		}
		images[parts[0]] = append(images[parts[0]], path)
		return nil
	})
	return images, err
}

func runRebuild(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	ctx := context.Background()

	svc, closeStores, err := newService(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStores()

	images, err := collectFaceImages(args[0])
	if err != nil {
		return fmt.Errorf("scanning %s: %w", args[0], err)
	}
	if len(images) == 0 {
		return fmt.Errorf("no face images found under %s", args[0])
	}

	if mustGetBool(cmd, "replace") {
		users, err := svc.Users(ctx)
		if err != nil {
			return fmt.Errorf("listing users: %w", err)
		}
		for _, u := range users {
			if err := svc.RemoveUser(ctx, u.UserID); err != nil {
				return fmt.Errorf("removing %s: %w", u.UserID, err)
			}
		}
	}

	total := 0
	for _, paths := range images {
		total += len(paths)
	}

	bar := progressbar.NewOptions(total,
		progressbar.OptionSetDescription("Enrolling faces"),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWriter(os.Stderr),
	)

	var failures []string
	enrolled := 0
	for userID, paths := range images {
		for _, path := range paths {
			image, err := os.ReadFile(path)
			if err != nil {
				failures = append(failures, fmt.Sprintf("%s: %v", path, err))
				bar.Add(1)
				continue
			}
			if _, err := svc.Enroll(ctx, userID, image); err != nil {
				failures = append(failures, fmt.Sprintf("%s: %v", path, err))
				bar.Add(1)
				continue
			}
			enrolled++
			bar.Add(1)
		}
	}
	fmt.Println()

	fmt.Printf("Enrolled %d of %d images for %d users\n", enrolled, total, len(images))
	for _, f := range failures {
		fmt.Printf("  skipped %s\n", f)
	}
	if enrolled == 0 {
		return fmt.Errorf("no images could be enrolled")
	}
	return nil
}
