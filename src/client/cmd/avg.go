package cmd

import (
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/apimgr/idealista/src/stats"
)

var (
	avgOpts       searchOptions
	avgGroupBy    string
	avgValueField string
	avgFormat     string
)

var avgCmd = &cobra.Command{
	Use:   "avg",
	Short: "Compute grouped statistics over matching listings",
	Long: `Fetch every page of a search and compute count, sum, average, median,
min, and max of a numeric field (price by default), grouped by a listing
field such as propertyType, municipality, or district.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		q, err := avgOpts.query()
		if err != nil {
			return err
		}

		// Statistics over a partial result set would be misleading, so avg
		// always walks all pages (bounded by --pages when set).
		listings, _, err := apiClient.Collect(cmd.Context(), q, true, avgOpts.pages)
		if err != nil {
			return err
		}

		result := stats.Aggregate(listings, avgGroupBy, avgValueField)

		switch avgFormat {
		case "json":
			return printJSON(result.ByKey())
		case "table", "":
			printStatsTable(result)
			return nil
		default:
			return fmt.Errorf("unknown format %q", avgFormat)
		}
	},
}

func init() {
	addSearchFlags(avgCmd, &avgOpts)
	avgCmd.Flags().StringVar(&avgGroupBy, "group-by", "", "listing field to group by (e.g. propertyType)")
	avgCmd.Flags().StringVar(&avgValueField, "value-field", stats.DefaultValueField, "numeric field to aggregate")
	avgCmd.Flags().StringVar(&avgFormat, "format", "table", "output format: table, json")
}

func printStatsTable(result *stats.Result) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "GROUP\tCOUNT\tAVG\tMEDIAN\tMIN\tMAX")
	for _, g := range result.Groups() {
		fmt.Fprintf(w, "%s\t%d\t%s\t%s\t%s\t%s\n",
			g.Key, g.Count,
			fmtNumber(g.Average, g.Count),
			fmtNumber(g.Median, g.Count),
			fmtNumber(g.Min, g.Count),
			fmtNumber(g.Max, g.Count),
		)
	}
	w.Flush()
}

func fmtNumber(v float64, count int) string {
	if count == 0 {
		return "-"
	}
	return strconv.FormatFloat(v, 'f', decimals(v), 64)
}

// decimals keeps whole euros whole and fractional averages readable.
func decimals(v float64) int {
	if v == float64(int64(v)) {
		return 0
	}
	return 2
}
