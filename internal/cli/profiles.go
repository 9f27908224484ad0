package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/edgard/zapbot/internal/ai"
	"github.com/edgard/zapbot/internal/database"
)

type profileFlags struct {
	name        string
	phone       string
	tone        string
	instruction string
	style       string
	learnFrom   string
}

func (f *profileFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.name, "name", "", "profile name")
	cmd.Flags().StringVar(&f.phone, "phone", "", "phone number this profile overrides replies for")
	cmd.Flags().StringVar(&f.tone, "tone", "", "reply tone: friendly, casual, professional, playful, or serious")
	cmd.Flags().StringVar(&f.instruction, "instruction", "", "base system instruction for the persona")
	cmd.Flags().StringVar(&f.style, "style", "", "custom writing style block")
	cmd.Flags().StringVar(&f.learnFrom, "learn-from", "", "sender whose logged messages feed style analysis")
}

func newProfilesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profiles",
		Short: "Manage persona profiles",
	}
	cmd.AddCommand(
		newProfilesListCmd(),
		newProfilesCreateCmd(),
		newProfilesEditCmd(),
		newProfilesDeleteCmd(),
		newProfilesActivateCmd(),
		newProfilesAnalyzeCmd(),
	)
	return cmd
}

func newProfilesListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all profiles",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withEnv(cmd, func(ctx context.Context, e *env) error {
				profiles, err := e.store.GetProfiles(ctx)
				if err != nil {
					return err
				}
				if len(profiles) == 0 {
					fmt.Println("No profiles. Create one with: zapbot profiles create --name <name>")
					return nil
				}

				w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
				fmt.Fprintln(w, "ID\tNAME\tPHONE\tTONE\tACTIVE\tSTYLE")
				for _, p := range profiles {
					style := "-"
					if p.CustomStyle != "" {
						style = "learned"
					}
					active := ""
					if p.Active {
						active = "*"
					}
					fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\n", p.ID, p.Name, p.Phone, p.Tone, active, style)
				}
				return w.Flush()
			})
		},
	}
}

func newProfilesCreateCmd() *cobra.Command {
	var flags profileFlags
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a new profile",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if flags.name == "" {
				return errors.New("--name is required")
			}
			return withEnv(cmd, func(ctx context.Context, e *env) error {
				profile := &database.Profile{
					Name:              flags.name,
					Phone:             flags.phone,
					Tone:              flags.tone,
					SystemInstruction: flags.instruction,
					CustomStyle:       flags.style,
					LearnFromChat:     flags.learnFrom,
				}
				if err := e.store.SaveProfile(ctx, profile); err != nil {
					return err
				}
				fmt.Printf("Created profile %d (%s)\n", profile.ID, profile.Name)
				return nil
			})
		},
	}
	flags.register(cmd)
	return cmd
}

func newProfilesEditCmd() *cobra.Command {
	var flags profileFlags
	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Edit an existing profile",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseProfileID(args[0])
			if err != nil {
				return err
			}
			return withEnv(cmd, func(ctx context.Context, e *env) error {
				profile, err := e.store.GetProfile(ctx, id)
				if err != nil {
					return err
				}

				if cmd.Flags().Changed("name") {
					profile.Name = flags.name
				}
				if cmd.Flags().Changed("phone") {
					profile.Phone = flags.phone
				}
				if cmd.Flags().Changed("tone") {
					profile.Tone = flags.tone
				}
				if cmd.Flags().Changed("instruction") {
					profile.SystemInstruction = flags.instruction
				}
				if cmd.Flags().Changed("style") {
					profile.CustomStyle = flags.style
				}
				if cmd.Flags().Changed("learn-from") {
					profile.LearnFromChat = flags.learnFrom
				}

				if err := e.store.SaveProfile(ctx, profile); err != nil {
					return err
				}
				fmt.Printf("Updated profile %d (%s)\n", profile.ID, profile.Name)
				return nil
			})
		},
	}
	flags.register(cmd)
	return cmd
}

func newProfilesDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a profile",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseProfileID(args[0])
			if err != nil {
				return err
			}
			return withEnv(cmd, func(ctx context.Context, e *env) error {
				if err := e.store.DeleteProfile(ctx, id); err != nil {
					return err
				}
				fmt.Printf("Deleted profile %d\n", id)
				return nil
			})
		},
	}
}

func newProfilesActivateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "activate <id>",
		Short: "Make a profile the active persona",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseProfileID(args[0])
			if err != nil {
				return err
			}
			return withEnv(cmd, func(ctx context.Context, e *env) error {
				if err := e.store.ActivateProfile(ctx, id); err != nil {
					return err
				}
				fmt.Printf("Profile %d is now active\n", id)
				return nil
			})
		},
	}
}

func newProfilesAnalyzeCmd() *cobra.Command {
	var samples int
	cmd := &cobra.Command{
		Use:   "analyze <id>",
		Short: "Learn a profile's writing style from logged messages",
		Long: "Feeds the profile's learn-from sender's logged messages through the style " +
			"analysis model and stores the result as the profile's custom style.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseProfileID(args[0])
			if err != nil {
				return err
			}
			return withEnv(cmd, func(ctx context.Context, e *env) error {
				if !e.cfg.AIEnabled() {
					return errors.New("style analysis needs an AI API key")
				}

				profile, err := e.store.GetProfile(ctx, id)
				if err != nil {
					return err
				}

				source := profile.LearnFromChat
				if source == "" {
					source = profile.Phone
				}
				if source == "" {
					return fmt.Errorf("profile %d has no learn-from sender or phone set", id)
				}

				logs, err := e.store.GetRecentMessageLogsForSender(ctx, source, samples)
				if err != nil {
					return err
				}
				if len(logs) == 0 {
					return fmt.Errorf("no logged messages from %s to analyze", source)
				}

				client, err := ai.NewClient(ctx, e.cfg.AI, e.cfg.Bot.Name, e.log)
				if err != nil {
					return err
				}

				texts := make([]string, 0, len(logs))
				for _, l := range logs {
					texts = append(texts, l.Body)
				}

				style, err := client.AnalyzeStyle(ctx, texts)
				if err != nil {
					return err
				}

				profile.CustomStyle = style
				if err := e.store.SaveProfile(ctx, profile); err != nil {
					return err
				}

				fmt.Printf("Learned style for profile %d from %d messages:\n\n%s\n", id, len(logs), style)
				return nil
			})
		},
	}
	cmd.Flags().IntVarP(&samples, "samples", "n", 50, "maximum number of logged messages to analyze")
	return cmd
}

func parseProfileID(arg string) (uint, error) {
	id, err := strconv.ParseUint(arg, 10, 32)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("invalid profile id %q", arg)
	}
	return uint(id), nil
}
