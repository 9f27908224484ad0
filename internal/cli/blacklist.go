package cli

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/edgard/zapbot/internal/whatsapp"
)

func newBlacklistCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "blacklist",
		Short: "Manage blocked senders",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List blocked senders",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withEnv(cmd, func(ctx context.Context, e *env) error {
					entries, err := e.store.GetBlacklist(ctx)
					if err != nil {
						return err
					}
					if len(entries) == 0 {
						fmt.Println("The blacklist is empty.")
						return nil
					}

					w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
					fmt.Fprintln(w, "SENDER\tBLOCKED SINCE")
					for _, entry := range entries {
						fmt.Fprintf(w, "%s\t%s\n", entry.Sender, entry.CreatedAt.Format("2006-01-02 15:04"))
					}
					return w.Flush()
				})
			},
		},
		&cobra.Command{
			Use:   "add <sender>",
			Short: "Block a sender",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				jid, err := whatsapp.ParseJID(args[0])
				if err != nil {
					return err
				}
				return withEnv(cmd, func(ctx context.Context, e *env) error {
					if err := e.store.AddToBlacklist(ctx, jid.String()); err != nil {
						return err
					}
					fmt.Printf("Blocked %s\n", jid)
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "remove <sender>",
			Short: "Unblock a sender",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				jid, err := whatsapp.ParseJID(args[0])
				if err != nil {
					return err
				}
				return withEnv(cmd, func(ctx context.Context, e *env) error {
					if err := e.store.RemoveFromBlacklist(ctx, jid.String()); err != nil {
						return err
					}
					fmt.Printf("Unblocked %s\n", jid)
					return nil
				})
			},
		},
	)
	return cmd
}
