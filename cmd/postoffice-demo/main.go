// Command postoffice-demo exercises the post office end to end: it
// registers users, sends two messages (one urgent), prints a mailbox,
// reads inboxes with and without a count limit, and searches bodies.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/rbaliyan/postoffice"
)

func main() {
	var logLevel string
	var users []string

	rootCmd := &cobra.Command{
		Use:   "postoffice-demo",
		Short: "Demonstrate the in-memory post office",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := setupLogger(logLevel)
			slog.SetDefault(logger)
			return run(cmd.Context(), users, logger)
		},
	}

	rootCmd.Flags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.Flags().StringSliceVar(&users, "users", []string{"newman", "peanutbutter"}, "usernames to register")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func setupLogger(level string) *slog.Logger {
	lvl := new(slog.LevelVar)
	switch level {
	case "debug":
		lvl.Set(slog.LevelDebug)
	case "warn":
		lvl.Set(slog.LevelWarn)
	case "error":
		lvl.Set(slog.LevelError)
	default:
		lvl.Set(slog.LevelInfo)
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}

func run(ctx context.Context, users []string, logger *slog.Logger) error {
	if len(users) < 2 {
		return fmt.Errorf("need at least two users, got %d", len(users))
	}

	office, err := postoffice.New(users, postoffice.WithLogger(logger))
	if err != nil {
		return fmt.Errorf("create office: %w", err)
	}
	if err := office.Connect(ctx); err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer office.Close(ctx)

	sender, recipient := users[0], users[1]

	first := postoffice.NewMessage(sender, recipient, "Hello", "Hello, "+recipient+".")
	id, err := office.Send(ctx, first)
	if err != nil {
		return fmt.Errorf("send: %w", err)
	}
	first.AssignID(id)
	fmt.Printf("sent message number %d\n", id)

	second := postoffice.NewMessage(sender, recipient, "Checking in", "How are you?")
	id, err = office.Send(ctx, second, postoffice.Urgent())
	if err != nil {
		return fmt.Errorf("send urgent: %w", err)
	}
	second.AssignID(id)
	fmt.Printf("sent urgent message number %d\n", id)

	fmt.Printf("\nmailbox of %s:\n", recipient)
	box, err := office.Mailbox(ctx, recipient)
	if err != nil {
		return fmt.Errorf("mailbox: %w", err)
	}
	for _, msg := range box {
		fmt.Println(msg)
		fmt.Println("--")
	}

	// Bounded read: only the front of the mailbox is scanned and marked.
	unread, err := office.ReadInbox(ctx, recipient, postoffice.WithLimit(1))
	if err != nil {
		return fmt.Errorf("read inbox: %w", err)
	}
	fmt.Printf("\nread with limit 1: %d unread\n", len(unread))
	for _, msg := range unread {
		fmt.Println(msg)
	}

	// Unbounded read picks up the rest.
	unread, err = office.ReadInbox(ctx, recipient)
	if err != nil {
		return fmt.Errorf("read inbox: %w", err)
	}
	fmt.Printf("\nread without limit: %d unread\n", len(unread))
	for _, msg := range unread {
		fmt.Println(msg)
	}

	// The sender's inbox is empty.
	unread, err = office.ReadInbox(ctx, sender)
	if err != nil {
		return fmt.Errorf("read inbox: %w", err)
	}
	fmt.Printf("\nread %s's inbox: %d unread\n", sender, len(unread))

	hits, err := office.SearchInbox(ctx, recipient, "are")
	if err != nil {
		return fmt.Errorf("search inbox: %w", err)
	}
	fmt.Printf("\nsearch %q: %d matches\n", "are", len(hits))
	for _, msg := range hits {
		fmt.Println(msg)
	}

	stats, err := office.Stats(ctx, recipient)
	if err != nil {
		return fmt.Errorf("stats: %w", err)
	}
	fmt.Printf("\nstats for %s: total=%d unread=%d\n", recipient, stats.Total, stats.Unread)

	return nil
}
