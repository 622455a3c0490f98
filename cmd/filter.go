package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/carte/internal/catalog"
	"github.com/sells-group/carte/internal/normalize"
	"github.com/sells-group/carte/internal/viewer"
)

// filterFlags are the filter options shared by filter and export.
type filterFlags struct {
	query string
	types []string
	dept  string
}

func (f *filterFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.query, "query", "q", "", "free-text search over every project field")
	cmd.Flags().StringSliceVar(&f.types, "type", nil, "project categories to keep (default: every configured category)")
	cmd.Flags().StringVar(&f.dept, "dept", "", "keep only projects of this department code")
}

func (f *filterFlags) state() viewer.FilterState {
	st := viewer.FilterState{
		Query:      f.query,
		Categories: cfg.Viewer.Categories,
	}
	if len(f.types) > 0 {
		st.Categories = f.types
	}
	if f.dept != "" {
		st.RegionFilter = true
		st.SelectedCode = normalize.DeptCode(f.dept)
	}
	return st
}

var (
	filterOpts   filterFlags
	filterFormat string
)

// printProjects writes the matching projects as a table.
func printProjects(out io.Writer, d *catalog.Data, indexes []int) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "INDEX\tNAME\tTYPE\tDEPT\tANTENNA\tLOCATION")
	_, _ = fmt.Fprintln(w, "-----\t----\t----\t----\t-------\t--------")
	for _, i := range indexes {
		p := d.Projects[i]
		code := viewer.ResolveRegion(p.Region(), d.Index)
		loc := "-"
		if l, ok := p.Location(); ok {
			loc = strconv.FormatFloat(l.Lat, 'f', -1, 64) + "," + strconv.FormatFloat(l.Lon, 'f', -1, 64)
		}
		_, _ = fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\n",
			i, p.Name(), strings.TrimSpace(p.Category()), orDash(code), orDash(d.Index.Antenna(code)), loc)
	}
	_ = w.Flush()
	_, _ = fmt.Fprintf(out, "%d projet(s)\n", len(indexes))
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

var filterCmd = &cobra.Command{
	Use:   "filter",
	Short: "List the projects matching a filter",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if filterFormat != "table" && filterFormat != "json" {
			return eris.Errorf("filter: unknown format %q (want table or json)", filterFormat)
		}

		env, err := initCatalog("filter", nil)
		if err != nil {
			return err
		}
		d := env.load(ctx)
		if s := d.Status(); s != "" {
			_, _ = fmt.Fprintln(cmd.ErrOrStderr(), s)
		}

		indexes := viewer.Filter(d.Projects, filterOpts.state(), d.Index)
		out := cmd.OutOrStdout()
		if filterFormat == "json" {
			list := make([]any, len(indexes))
			for n, i := range indexes {
				list[n] = d.Projects[i]
			}
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return eris.Wrap(enc.Encode(list), "filter: encode")
		}
		printProjects(out, d, indexes)
		return nil
	},
}

func init() {
	filterOpts.register(filterCmd)
	filterCmd.Flags().StringVar(&filterFormat, "format", "table", "output format: table or json")
	rootCmd.AddCommand(filterCmd)
}
