package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"remit-scout/quotes/history"
	"remit-scout/quotes/types"
)

func getHistoryCmd() *cobra.Command {
	historyCmd := &cobra.Command{
		Use:   "history [config-file]",
		Args:  cobra.MaximumNArgs(1),
		Short: "Summarize stored quotes for a corridor per provider",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := getCmdLogger(cmd)
			if err != nil {
				return err
			}
			cfg, err := getCmdConfig(args)
			if err != nil {
				return err
			}

			flags := cmd.Flags()
			srcCountry, _ := flags.GetString("from-country")
			dstCountry, _ := flags.GetString("to-country")
			srcCurrency, _ := flags.GetString("from-currency")
			dstCurrency, _ := flags.GetString("to-currency")
			days, _ := flags.GetInt("days")

			h, err := history.NewQuoteHistory(cfg.HistoryDb, logger)
			if err != nil {
				return err
			}
			defer h.Close()

			req := types.QuoteRequest{
				SourceCountry:  srcCountry,
				DestCountry:    dstCountry,
				SourceCurrency: srcCurrency,
				DestCurrency:   dstCurrency,
			}
			end := time.Now()
			start := end.AddDate(0, 0, -days)

			stored, err := h.GetQuotes(req, start, end)
			if err != nil {
				return err
			}
			if len(stored) == 0 {
				fmt.Printf("no stored quotes for %s->%s between %s and %s\n",
					srcCountry, dstCountry, start.Format(time.DateOnly), end.Format(time.DateOnly))
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "PROVIDER\tQUOTES\tAVG RATE\tAVG FEE\tLAST SEEN")
			for providerID, records := range stored {
				var rateSum, feeSum decimal.Decimal
				last := records[0].Time
				for _, rec := range records {
					rateSum = rateSum.Add(rec.ExchangeRate)
					feeSum = feeSum.Add(rec.Fee)
					if rec.Time.After(last) {
						last = rec.Time
					}
				}
				n := decimal.NewFromInt(int64(len(records)))
				fmt.Fprintf(w, "%s\t%d\t%s\t%s\t%s\n",
					providerID,
					len(records),
					rateSum.DivRound(n, 6).String(),
					feeSum.DivRound(n, 2).String(),
					last.Format(time.RFC3339),
				)
			}
			return w.Flush()
		},
	}

	historyCmd.Flags().String("from-country", "", "source country (ISO-3166-1 alpha-2)")
	historyCmd.Flags().String("to-country", "", "destination country (ISO-3166-1 alpha-2)")
	historyCmd.Flags().String("from-currency", "", "source currency (ISO-4217)")
	historyCmd.Flags().String("to-currency", "", "destination currency (ISO-4217)")
	historyCmd.Flags().Int("days", 7, "window to summarize, in days")

	return historyCmd
}
