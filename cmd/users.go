package cmd

import (
	"context"
	"fmt"

	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/spf13/cobra"
)

var usersCmd = &cobra.Command{
	Use:   "users",
	Short: "Manage enrolled users",
}

var usersListCmd = &cobra.Command{
	Use:   "list",
	Short: "List enrolled users",
	RunE:  runUsersList,
}

var usersRemoveCmd = &cobra.Command{
	Use:   "remove <user-id>",
	Short: "Remove a user and all their embeddings",
	Args:  cobra.ExactArgs(1),
	RunE:  runUsersRemove,
}

func init() {
	rootCmd.AddCommand(usersCmd)
	usersCmd.AddCommand(usersListCmd)
	usersCmd.AddCommand(usersRemoveCmd)
}

func runUsersList(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	ctx := context.Background()

	svc, closeStores, err := newService(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStores()

	users, err := svc.Users(ctx)
	if err != nil {
		return fmt.Errorf("listing users: %w", err)
	}

	if len(users) == 0 {
		fmt.Println("No users enrolled")
		return nil
	}

	fmt.Printf("%-30s %s\n", "USER", "EMBEDDINGS")
	for _, u := range users {
		fmt.Printf("%-30s %d\n", u.UserID, u.Embeddings)
	}
	return nil
}

func runUsersRemove(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	ctx := context.Background()

	svc, closeStores, err := newService(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStores()

	if err := svc.RemoveUser(ctx, args[0]); err != nil {
		return fmt.Errorf("removing user: %w", err)
	}
	fmt.Printf("Removed %s\n", args[0])
	return nil
}
