package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"reelsmith/internal/api"
	"reelsmith/internal/config"
	"reelsmith/internal/store"
)

func newSpecCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "spec",
		Short: "Manage scene specifications",
	}
	cmd.AddCommand(
		newSpecAddCommand(),
		newSpecListCommand(),
		newSpecShowCommand(),
		newSpecApproveCommand(),
	)
	return cmd
}

func openStore() (*store.Store, *config.Config, error) {
	cfg, _, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	st, err := store.Open(cfg)
	if err != nil {
		return nil, nil, err
	}
	return st, cfg, nil
}

type specFile struct {
	UserID         string          `json:"user_id"`
	Title          string          `json:"title"`
	Description    string          `json:"description"`
	TargetDuration int             `json:"target_duration_seconds"`
	Scenes         []api.SceneView `json:"scenes"`
}

func newSpecAddCommand() *cobra.Command {
	var userID string
	cmd := &cobra.Command{
		Use:   "add <spec.json>",
		Short: "Add a scene specification from a JSON file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read spec file: %w", err)
			}
			var parsed specFile
			if err := json.Unmarshal(data, &parsed); err != nil {
				return fmt.Errorf("parse spec file: %w", err)
			}
			if userID != "" {
				parsed.UserID = userID
			}

			st, _, err := openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			spec := &store.SceneSpec{
				UserID:         parsed.UserID,
				Title:          parsed.Title,
				Description:    parsed.Description,
				TargetDuration: parsed.TargetDuration,
				Scenes:         api.ViewScenes(parsed.Scenes),
			}
			if err := st.CreateSpec(cmd.Context(), spec); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created spec %s (%d scenes, %ds)\n",
				spec.ID, len(spec.Scenes), spec.TargetDuration)
			return nil
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "override the owning user id")
	return cmd
}

func newSpecListCommand() *cobra.Command {
	var statusFilter string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List scene specifications",
		RunE: func(cmd *cobra.Command, args []string) error {
			st, _, err := openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			var statuses []store.SpecStatus
			if statusFilter != "" {
				for _, value := range strings.Split(statusFilter, ",") {
					status, ok := store.ParseSpecStatus(value)
					if !ok {
						return fmt.Errorf("unknown status %q", value)
					}
					statuses = append(statuses, status)
				}
			}
			specs, err := st.ListSpecs(cmd.Context(), statuses...)
			if err != nil {
				return err
			}
			renderSpecTable(cmd.OutOrStdout(), specs)
			return nil
		},
	}
	cmd.Flags().StringVar(&statusFilter, "status", "", "filter by status (comma separated)")
	return cmd
}

func newSpecShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show <spec-id>",
		Short: "Show one scene specification as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, _, err := openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			spec, err := st.GetSpec(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if spec == nil {
				return fmt.Errorf("spec %s not found", args[0])
			}
			encoder := json.NewEncoder(cmd.OutOrStdout())
			encoder.SetIndent("", "  ")
			return encoder.Encode(api.SpecToView(spec))
		},
	}
}

func newSpecApproveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "approve <spec-id>",
		Short: "Approve a draft specification for rendering",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, _, err := openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			if err := st.ApproveSpec(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Approved spec %s\n", args[0])
			return nil
		},
	}
}
