package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"
)

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show bot status",
		Long:  "Shows live status from a running bot's dashboard API, plus stored counts from the database.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withEnv(cmd, func(ctx context.Context, e *env) error {
				if state, ok := fetchLiveState(ctx, e.cfg.Web.Addr); ok {
					fmt.Printf("Bot:        running (%s)\n", state)
				} else {
					fmt.Println("Bot:        not running (or dashboard disabled)")
				}

				profiles, err := e.store.GetProfiles(ctx)
				if err != nil {
					return err
				}
				active := "none"
				for _, p := range profiles {
					if p.Active {
						active = p.Name
						break
					}
				}

				messages, err := e.store.CountMessageLogs(ctx)
				if err != nil {
					return err
				}
				blacklist, err := e.store.GetBlacklist(ctx)
				if err != nil {
					return err
				}

				fmt.Printf("AI:         enabled=%t model=%s\n", e.cfg.AIEnabled(), e.cfg.AI.Model)
				fmt.Printf("Profiles:   %d (active: %s)\n", len(profiles), active)
				fmt.Printf("Messages:   %d logged\n", messages)
				fmt.Printf("Blacklist:  %d senders\n", len(blacklist))
				return nil
			})
		},
	}
}

// fetchLiveState asks a running instance's dashboard API for the current
// connection state.
func fetchLiveState(ctx context.Context, addr string) (string, bool) {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("http://%s/api/status", addr), nil)
	if err != nil {
		return "", false
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", false
	}
	defer resp.Body.Close()

	var payload struct {
		State string `json:"state"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil || payload.State == "" {
		return "", false
	}
	return payload.State, true
}
