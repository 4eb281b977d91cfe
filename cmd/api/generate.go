package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func generateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "generate",
		Short: "Materialize upcoming doses for every active medication once",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := bootstrap(cmd.Context(), nil)
			if err != nil {
				return err
			}
			defer rt.Close()

			n, err := rt.app.Generator.GenerateAllActive(cmd.Context())
			fmt.Fprintf(cmd.OutOrStdout(), "generated %d dose(s)\n", n)
			return err
		},
	}
}
