package cli

import (
	"context"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newMessagesCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "messages",
		Short: "Show recent handled messages",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withEnv(cmd, func(ctx context.Context, e *env) error {
				logs, err := e.store.GetRecentMessageLogs(ctx, limit)
				if err != nil {
					return err
				}
				if len(logs) == 0 {
					fmt.Println("No messages logged yet.")
					return nil
				}

				w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
				fmt.Fprintln(w, "TIME\tSENDER\tMESSAGE\tREPLY\tPROFILE")
				for _, l := range logs {
					sender := l.SenderName
					if sender == "" {
						sender = l.Sender
					}
					fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
						l.Timestamp.Format("2006-01-02 15:04"),
						sender,
						excerpt(l.Body, 40),
						excerpt(l.Reply, 40),
						l.ProfileUsed,
					)
				}
				return w.Flush()
			})
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of messages to show")
	return cmd
}

func newClearMessagesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear-messages",
		Short: "Delete all logged messages",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withEnv(cmd, func(ctx context.Context, e *env) error {
				count, err := e.store.CountMessageLogs(ctx)
				if err != nil {
					return err
				}
				if err := e.store.DeleteAllMessageLogs(ctx); err != nil {
					return err
				}
				fmt.Printf("Deleted %d logged messages\n", count)
				return nil
			})
		},
	}
}

// excerpt shortens multi-line text to a single line of at most max runes.
func excerpt(text string, max int) string {
	text = strings.Join(strings.Fields(text), " ")
	runes := []rune(text)
	if len(runes) <= max {
		return text
	}
	return string(runes[:max-1]) + "…"
}
