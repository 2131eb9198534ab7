package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/apimgr/idealista/src/model"
)

// searchOptions carries the flags shared by search and avg.
type searchOptions struct {
	country      string
	operation    string
	propertyType string
	center       string
	distance     int
	locationID   string
	locale       string
	maxItems     int
	numPage      int
	pages        int
	allPages     bool
	filters      []string
}

func addSearchFlags(cmd *cobra.Command, o *searchOptions) {
	cmd.Flags().StringVar(&o.country, "country", "es", "country code: es, it, pt")
	cmd.Flags().StringVar(&o.operation, "operation", "sale", "sale or rent")
	cmd.Flags().StringVar(&o.propertyType, "property-type", "homes", "homes, offices, premises, garages, bedrooms")
	cmd.Flags().StringVar(&o.center, "center", "", "center point as lat,lon")
	cmd.Flags().IntVar(&o.distance, "distance", 0, "search radius in meters around --center")
	cmd.Flags().StringVar(&o.locationID, "location-id", "", "idealista location id")
	cmd.Flags().StringVar(&o.locale, "locale", "", "response locale")
	cmd.Flags().IntVar(&o.maxItems, "max-items", model.MaxPageSize, "page size, capped at 50")
	cmd.Flags().IntVar(&o.numPage, "num-page", 1, "page number for single-page fetches")
	cmd.Flags().IntVar(&o.pages, "pages", 0, "limit pages when fetching all pages")
	cmd.Flags().BoolVar(&o.allPages, "all-pages", false, "fetch every result page")
	cmd.Flags().StringArrayVar(&o.filters, "filter", nil, "extra filter key=value (repeatable)")
}

// query builds and validates the SearchQuery from the flags.
func (o *searchOptions) query() (model.SearchQuery, error) {
	filters := make(map[string]string, len(o.filters))
	for _, kv := range o.filters {
		key, value, ok := strings.Cut(kv, "=")
		if !ok {
			return model.SearchQuery{}, fmt.Errorf("%w: --filter expects key=value, got %q", model.ErrInvalidQuery, kv)
		}
		filters[strings.TrimSpace(key)] = strings.TrimSpace(value)
	}

	q := model.SearchQuery{
		Country:      model.Country(o.country),
		Operation:    model.Operation(o.operation),
		PropertyType: model.PropertyType(o.propertyType),
		Center:       o.center,
		Distance:     o.distance,
		LocationID:   o.locationID,
		Locale:       o.locale,
		MaxItems:     o.maxItems,
		NumPage:      o.numPage,
		Filters:      filters,
	}
	if err := q.Validate(); err != nil {
		return model.SearchQuery{}, err
	}
	return q, nil
}

var defaultTableFields = []string{
	"price", "priceByArea", "size", "rooms", "bathrooms",
	"propertyType", "municipality", "district", "url",
}

var (
	searchOpts   searchOptions
	searchFormat string
	searchLimit  int
	searchFields string
)

var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "Search listings",
	Long: `Search listings around a center point or within a location id. With
--all-pages the result pages are fetched sequentially and merged into a
single stream; otherwise only the requested page is fetched.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		q, err := searchOpts.query()
		if err != nil {
			return err
		}

		listings, last, err := apiClient.Collect(cmd.Context(), q, searchOpts.allPages, searchOpts.pages)
		if err != nil {
			return err
		}

		switch searchFormat {
		case "json", "raw":
			return printJSON(combinePages(listings, last, searchOpts.allPages))
		case "summary":
			printSummary(last)
			return nil
		case "table", "":
			fields := defaultTableFields
			if searchFields != "" {
				fields = strings.Split(searchFields, ",")
			}
			printListingTable(listings, fields, searchLimit)
			return nil
		default:
			return fmt.Errorf("unknown format %q", searchFormat)
		}
	},
}

func init() {
	addSearchFlags(searchCmd, &searchOpts)
	searchCmd.Flags().StringVar(&searchFormat, "format", "table", "output format: table, json, summary")
	searchCmd.Flags().IntVar(&searchLimit, "limit", 0, "max rows in table output")
	searchCmd.Flags().StringVar(&searchFields, "fields", "", "comma-separated table columns")
}

// combinePages merges the listing stream back into a single page-shaped
// document for JSON output. When a bounded all-pages run stopped before the
// server's last page, totalPages is rewritten to the pages actually merged
// so the document stays self-consistent.
func combinePages(listings []model.Listing, last *model.SearchPage, allPages bool) *model.SearchPage {
	merged := &model.SearchPage{ElementList: listings}
	if listings == nil {
		merged.ElementList = []model.Listing{}
	}
	if last != nil {
		merged.Total = last.Total
		merged.TotalPages = last.TotalPages
		merged.ActualPage = last.ActualPage
		merged.ItemsPerPage = last.ItemsPerPage
		merged.Summary = last.Summary
		if allPages && last.ActualPage < last.TotalPages {
			merged.TotalPages = last.ActualPage
		}
	}
	return merged
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printSummary(page *model.SearchPage) {
	if page == nil {
		fmt.Println("total=0 pages=0")
		return
	}
	line := fmt.Sprintf("total=%d pages=%d", page.Total, page.TotalPages)
	if len(page.Summary) > 0 {
		line += " summary=" + strings.Join(page.Summary, "; ")
	}
	fmt.Println(line)
}

func printListingTable(listings []model.Listing, fields []string, limit int) {
	if limit <= 0 || limit > len(listings) {
		limit = len(listings)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, strings.ToUpper(strings.Join(fields, "\t")))
	for _, l := range listings[:limit] {
		row := make([]string, len(fields))
		for i, f := range fields {
			v, ok := l.Field(strings.TrimSpace(f))
			if !ok {
				v = "-"
			}
			row[i] = v
		}
		fmt.Fprintln(w, strings.Join(row, "\t"))
	}
	w.Flush()
	fmt.Printf("\nTotal: %d listings\n", len(listings))
}
