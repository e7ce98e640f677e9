package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"remit-scout/quotes/types"
)

const (
	// Exit codes for scripting: 2 for a rejected request, 3 when no
	// provider was active to serve it.
	exitInvalidParameter = 2
	exitNoProviders      = 3
)

func getQuoteCmd() *cobra.Command {
	quoteCmd := &cobra.Command{
		Use:   "quote [config-file]",
		Args:  cobra.MaximumNArgs(1),
		Short: "Fetch quotes for one corridor and print them",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := getCmdLogger(cmd)
			if err != nil {
				return err
			}
			cfg, err := getCmdConfig(args)
			if err != nil {
				return err
			}

			req, err := quoteRequestFromFlags(cmd)
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(exitInvalidParameter)
			}

			aggregator, closer, err := buildAggregator(cfg, logger)
			if err != nil {
				return err
			}
			defer closer()

			if len(aggregator.Registry().ActiveIDs(req.Options.IncludeProviders, req.Options.ExcludeProviders)) == 0 {
				fmt.Fprintln(os.Stderr, "no providers active")
				os.Exit(exitNoProviders)
			}

			result := aggregator.GetAllQuotes(cmd.Context(), req)
			if !result.Success {
				for _, provErr := range result.Errors {
					fmt.Fprintf(os.Stderr, "%s: %s\n", provErr.ErrorKind, provErr.ErrorMessage)
				}
				os.Exit(exitInvalidParameter)
			}

			asJSON, err := cmd.Flags().GetBool("json")
			if err != nil {
				return err
			}
			if asJSON {
				return json.NewEncoder(os.Stdout).Encode(result)
			}
			printQuotes(result)
			return nil
		},
	}

	quoteCmd.Flags().String("from-country", "", "source country (ISO-3166-1 alpha-2)")
	quoteCmd.Flags().String("to-country", "", "destination country (ISO-3166-1 alpha-2)")
	quoteCmd.Flags().String("from-currency", "", "source currency (ISO-4217)")
	quoteCmd.Flags().String("to-currency", "", "destination currency; defaults to the destination country's currency")
	quoteCmd.Flags().String("amount", "", "send amount")
	quoteCmd.Flags().String("sort-by", string(types.SortBestRate), "sort order: best_rate, lowest_fee, fastest_time or best_value")
	quoteCmd.Flags().StringSlice("providers", nil, "restrict the fan-out to these provider ids")
	quoteCmd.Flags().StringSlice("exclude", nil, "exclude these provider ids")
	quoteCmd.Flags().Bool("force-refresh", false, "bypass the cache read")
	quoteCmd.Flags().Int("timeout-ms", 0, "per-provider timeout in milliseconds")
	quoteCmd.Flags().Bool("json", false, "print the full AggregateResult as JSON")

	return quoteCmd
}

func quoteRequestFromFlags(cmd *cobra.Command) (types.QuoteRequest, error) {
	flags := cmd.Flags()

	amountStr, _ := flags.GetString("amount")
	amount, err := decimal.NewFromString(amountStr)
	if err != nil {
		return types.QuoteRequest{}, fmt.Errorf("invalid amount %q", amountStr)
	}

	srcCountry, _ := flags.GetString("from-country")
	dstCountry, _ := flags.GetString("to-country")
	srcCurrency, _ := flags.GetString("from-currency")
	dstCurrency, _ := flags.GetString("to-currency")
	sortBy, _ := flags.GetString("sort-by")
	include, _ := flags.GetStringSlice("providers")
	exclude, _ := flags.GetStringSlice("exclude")
	forceRefresh, _ := flags.GetBool("force-refresh")
	timeoutMs, _ := flags.GetInt("timeout-ms")

	req := types.QuoteRequest{
		SourceCountry:  srcCountry,
		DestCountry:    dstCountry,
		SourceCurrency: srcCurrency,
		DestCurrency:   dstCurrency,
		Amount:         amount,
		Options: types.QuoteOptions{
			SortBy:           types.SortBy(sortBy),
			IncludeProviders: include,
			ExcludeProviders: exclude,
			ForceRefresh:     forceRefresh,
		},
	}
	if timeoutMs > 0 {
		req.Options.PerProviderTimeout = time.Duration(timeoutMs) * time.Millisecond
	}
	return req, nil
}

func printQuotes(result types.AggregateResult) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "PROVIDER\tRATE\tFEE\tRECEIVE\tDELIVERY\tMETHOD")
	for _, q := range result.Quotes {
		rate := ""
		if q.ExchangeRate != nil {
			rate = q.ExchangeRate.String()
		}
		delivery := "-"
		if q.DeliveryTimeMinutes != nil {
			delivery = fmt.Sprintf("%dm", *q.DeliveryTimeMinutes)
		}
		fmt.Fprintf(w, "%s\t%s\t%s %s\t%s %s\t%s\t%s\n",
			q.ProviderID,
			rate,
			q.Fee.String(), q.SourceCurrency,
			q.DestinationAmount.String(), q.DestinationCurrency,
			delivery,
			q.DeliveryMethod,
		)
	}
	w.Flush()

	if len(result.Errors) > 0 {
		fmt.Println()
		for id, provErr := range result.Errors {
			fmt.Printf("%s: %s (%s)\n", id, provErr.ErrorMessage, provErr.ErrorKind)
		}
	}
	fmt.Printf("\n%d/%d providers quoted in %dms (cache_hit=%t)\n",
		len(result.Quotes), len(result.AllProviders), result.ElapsedMs, result.CacheHit)
}
