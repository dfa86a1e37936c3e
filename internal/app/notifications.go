package app

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"horse.fit/newslink/internal/cli"
	"horse.fit/newslink/internal/db"
)

func runNotifications(args []string) int {
	fs := flag.NewFlagSet("notifications", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	timeout := fs.Duration("timeout", 30*time.Second, "Command timeout")
	workspaceID := fs.String("workspace-id", "", "Workspace UUID (required)")
	limit := fs.Int("limit", 50, "Maximum notifications to return")
	format := fs.String("format", outputFormatTable, "Output format: table or json")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	workspace := strings.TrimSpace(*workspaceID)
	if _, err := uuid.Parse(workspace); err != nil {
		fmt.Fprintln(os.Stderr, "--workspace-id must be a UUID")
		return 2
	}
	if *limit <= 0 {
		fmt.Fprintln(os.Stderr, "--limit must be > 0")
		return 2
	}

	outputFormat, err := parseOutputFormat(*format, outputFormatTable)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid format: %v\n", err)
		return 2
	}

	ctx, cancel, pool, err := connectReadPool(*timeout, envLoader)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	defer cancel()
	defer pool.Close()

	items, err := pool.ListNotifications(ctx, workspace, *limit)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to query notifications: %v\n", err)
		return 1
	}

	if outputFormat == outputFormatJSON {
		return exitOnJSONError(printJSON(items))
	}

	return exitOnTableError(writeTable(
		[]string{"id", "entity", "title", "message", "updated_at", "read"},
		notificationRows(items),
		[]columnAlignment{alignRight},
	))
}

func notificationRows(items []db.Notification) [][]string {
	rows := make([][]string, 0, len(items))
	for _, item := range items {
		rows = append(rows, []string{
			strconv.FormatInt(item.ID, 10),
			item.EntityType + ":" + item.EntityID,
			truncateForTable(item.Title, 40),
			truncateForTable(item.Message, 70),
			formatUTCTimestamp(item.UpdatedAt),
			strconv.FormatBool(item.IsRead),
		})
	}
	return rows
}
