package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"reelsmith/internal/store"
)

func newStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show specification and asset counts",
		RunE: func(cmd *cobra.Command, args []string) error {
			st, _, err := openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			summary, err := st.HealthSummary(cmd.Context())
			if err != nil {
				return err
			}
			renderSummaryTable(cmd.OutOrStdout(), summary)

			rendering, err := st.ListSpecs(cmd.Context(), store.SpecStatusRendering)
			if err != nil {
				return err
			}
			if len(rendering) > 0 {
				fmt.Fprintln(cmd.OutOrStdout())
				fmt.Fprintln(cmd.OutOrStdout(), "In flight:")
				renderSpecTable(cmd.OutOrStdout(), rendering)
			}
			return nil
		},
	}
}
