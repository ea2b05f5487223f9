package main

import (
	"github.com/spf13/cobra"
)

func (c *cli) historyCmd() *cobra.Command {
	var (
		limit int
		query string
	)
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Afficher l'historique de lecture",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := commandContext(cmd)
			history, err := c.history(ctx)
			if err != nil {
				return err
			}
			entries, err := history.List(ctx, limit, query)
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				warnf(cmd.OutOrStdout(), "history is empty")
				return nil
			}
			return renderHistory(cmd.OutOrStdout(), entries)
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "nombre d'entrées")
	cmd.Flags().StringVarP(&query, "query", "q", "", "filtrer par titre (accents ignorés)")

	cmd.AddCommand(&cobra.Command{
		Use:   "rm <slug>",
		Short: "Supprimer un film de l'historique",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := commandContext(cmd)
			history, err := c.history(ctx)
			if err != nil {
				return err
			}
			if err := history.Delete(ctx, args[0]); err != nil {
				return err
			}
			okf(cmd.OutOrStdout(), "removed %s", args[0])
			return nil
		},
	})
	return cmd
}
