package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func getProvidersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "providers [config-file]",
		Args:  cobra.MaximumNArgs(1),
		Short: "List the configured providers and their state",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := getCmdLogger(cmd)
			if err != nil {
				return err
			}
			cfg, err := getCmdConfig(args)
			if err != nil {
				return err
			}

			aggregator, closer, err := buildAggregator(cfg, logger)
			if err != nil {
				return err
			}
			defer closer()

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tENABLED\tCIRCUIT")
			for _, info := range aggregator.Registry().Providers() {
				fmt.Fprintf(w, "%s\t%s\t%t\t%s\n",
					info.ID, info.DisplayName, info.Enabled, info.BreakerState)
			}
			return w.Flush()
		},
	}
}
