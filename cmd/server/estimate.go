package main

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/kiranshivaraju/quotehunter/internal/pricing"
	"github.com/kiranshivaraju/quotehunter/pkg/models"
)

var (
	estimateCategory   string
	estimateComplexity string
	estimateQuantity   int
)

var estimateCmd = &cobra.Command{
	Use:         "estimate",
	Short:       "Print the FOB price estimate for a category, complexity and quantity",
	Annotations: map[string]string{skipConfig: "true"},
	Args:        cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		pq, err := pricing.Default().Estimate(estimateCategory, estimateComplexity, estimateQuantity)
		if err != nil {
			return err
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(pq)
	},
}

func init() {
	estimateCmd.Flags().StringVar(&estimateCategory, "category", pricing.DefaultCategory, "product category")
	estimateCmd.Flags().StringVar(&estimateComplexity, "complexity", models.ComplexityMedium, "low, medium or high")
	estimateCmd.Flags().IntVar(&estimateQuantity, "quantity", 1000, "order quantity")
}
