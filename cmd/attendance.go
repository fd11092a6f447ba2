package cmd

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"time"

	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/kozaktomas/face-attendance/internal/store"
	"github.com/spf13/cobra"
)

var attendanceCmd = &cobra.Command{
	Use:   "attendance",
	Short: "Query the attendance log",
	RunE:  runAttendance,
}

func init() {
	rootCmd.AddCommand(attendanceCmd)

	attendanceCmd.Flags().String("user", "", "Only show events for this user")
	attendanceCmd.Flags().String("from", "", "Start of the time range (RFC 3339 or YYYY-MM-DD)")
	attendanceCmd.Flags().String("to", "", "End of the time range (RFC 3339 or YYYY-MM-DD)")
	attendanceCmd.Flags().Bool("csv", false, "Output as CSV instead of a table")
}

func parseTimeFlag(value string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", value)
}

func runAttendance(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	ctx := context.Background()

	svc, closeStores, err := newService(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStores()

	filter := store.RecordFilter{UserID: mustGetString(cmd, "user")}
	if v := mustGetString(cmd, "from"); v != "" {
		t, err := parseTimeFlag(v)
		if err != nil {
			return fmt.Errorf("invalid --from value %q", v)
		}
		filter.Start = t
	}
	if v := mustGetString(cmd, "to"); v != "" {
		t, err := parseTimeFlag(v)
		if err != nil {
			return fmt.Errorf("invalid --to value %q", v)
		}
		filter.End = t
	}

	events, err := svc.Records(ctx, filter)
	if err != nil {
		return fmt.Errorf("querying attendance: %w", err)
	}

	if mustGetBool(cmd, "csv") {
		return writeAttendanceCSV(os.Stdout, events)
	}

	if len(events) == 0 {
		fmt.Println("No attendance events")
		return nil
	}

	fmt.Printf("%-30s %-25s %s\n", "USER", "TIME", "SOURCE")
	for _, e := range events {
		fmt.Printf("%-30s %-25s %s\n", e.UserID, e.LoggedAt.Format(time.RFC3339), e.Source)
	}
	return nil
}

func writeAttendanceCSV(f *os.File, events []store.Event) error {
	w := csv.NewWriter(f)
	if err := w.Write([]string{"user_id", "logged_at", "source"}); err != nil {
		return err
	}
	for _, e := range events {
		if err := w.Write([]string{e.UserID, e.LoggedAt.Format(time.RFC3339), e.Source}); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}
