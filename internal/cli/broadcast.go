package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/edgard/zapbot/internal/whatsapp"
)

const broadcastConnectTimeout = 30 * time.Second

func newBroadcastCmd() *cobra.Command {
	var message string
	var all bool
	cmd := &cobra.Command{
		Use:   "broadcast [recipient]...",
		Short: "Send a message to one or more recipients",
		Long: "Connects with the stored WhatsApp session and sends the message to each " +
			"recipient. Recipients are phone numbers or JIDs; --all targets every sender " +
			"known from the message log except blacklisted ones. The device must already be paired.",
		Args: cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if message == "" {
				return errors.New("--message is required")
			}
			if len(args) == 0 && !all {
				return errors.New("pass at least one recipient or --all")
			}
			return withEnv(cmd, func(ctx context.Context, e *env) error {
				recipients := args
				if all {
					known, err := broadcastTargets(ctx, e)
					if err != nil {
						return err
					}
					recipients = append(recipients, known...)
				}
				if len(recipients) == 0 {
					return errors.New("no recipients to broadcast to")
				}

				ready := make(chan struct{}, 1)
				client, err := whatsapp.NewClient(ctx, e.cfg.WhatsApp, e.cfg.Database.SessionPath, whatsapp.Handlers{
					OnState: func(s whatsapp.State) {
						if s == whatsapp.StateReady {
							select {
							case ready <- struct{}{}:
							default:
							}
						}
					},
				}, e.log)
				if err != nil {
					return err
				}

				runCtx, cancel := context.WithCancel(ctx)
				defer cancel()
				go func() {
					_ = client.Run(runCtx)
				}()

				select {
				case <-ready:
				case <-time.After(broadcastConnectTimeout):
					return errors.New("timed out waiting for the WhatsApp connection; is the device paired?")
				case <-ctx.Done():
					return ctx.Err()
				}

				sent := 0
				for _, recipient := range recipients {
					if err := client.Send(ctx, recipient, message); err != nil {
						fmt.Printf("Failed to send to %s: %v\n", recipient, err)
						continue
					}
					fmt.Printf("Sent to %s\n", recipient)
					sent++
				}

				if sent == 0 {
					return errors.New("no messages were delivered")
				}
				fmt.Printf("Delivered to %d of %d recipients\n", sent, len(recipients))
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&message, "message", "m", "", "text to send")
	cmd.Flags().BoolVar(&all, "all", false, "send to every known sender except blacklisted ones")
	return cmd
}

// broadcastTargets lists known senders from the message log, minus the
// blacklist.
func broadcastTargets(ctx context.Context, e *env) ([]string, error) {
	senders, err := e.store.GetKnownSenders(ctx)
	if err != nil {
		return nil, err
	}
	blocked, err := e.store.GetBlacklist(ctx)
	if err != nil {
		return nil, err
	}

	blockedSet := make(map[string]struct{}, len(blocked))
	for _, entry := range blocked {
		blockedSet[entry.Sender] = struct{}{}
	}

	targets := make([]string, 0, len(senders))
	for _, sender := range senders {
		if _, ok := blockedSet[sender]; !ok {
			targets = append(targets, sender)
		}
	}
	return targets, nil
}
