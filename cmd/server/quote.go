package main

import (
	"encoding/json"
	"errors"

	"github.com/spf13/cobra"

	"github.com/kiranshivaraju/quotehunter/internal/quote"
	"github.com/kiranshivaraju/quotehunter/internal/trigger"
)

var (
	quoteQuantity   int
	quoteComplexity string
	quoteRequester  string
)

var quoteCmd = &cobra.Command{
	Use:   "quote <video-url>",
	Short: "Run the pipeline once and print the quote card as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ref, ok := trigger.Detect(args[0])
		if !ok {
			return errors.New("argument is not a supported video link")
		}

		env, err := initEnv(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer env.Close()

		out := env.Assembler.Run(cmd.Context(), quote.Trigger{
			Reference:     ref,
			RequesterID:   quoteRequester,
			RequesterName: quoteRequester,
			Quantity:      quoteQuantity,
			Complexity:    quoteComplexity,
		})

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		if out.Card != nil {
			return enc.Encode(out.Card)
		}
		if out.ErrorCard != nil {
			if err := enc.Encode(out.ErrorCard); err != nil {
				return err
			}
		}
		if out.Err != nil {
			return out.Err
		}
		return errors.New("pipeline produced no card")
	},
}

func init() {
	quoteCmd.Flags().IntVar(&quoteQuantity, "quantity", 0, "order quantity (default from QUOTE_QUANTITY)")
	quoteCmd.Flags().StringVar(&quoteComplexity, "complexity", "", "low, medium or high (default from QUOTE_COMPLEXITY)")
	quoteCmd.Flags().StringVar(&quoteRequester, "requester", "cli", "requester id recorded with the request")
}
