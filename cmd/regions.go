package main

import (
	"fmt"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sells-group/carte/internal/viewer"
)

var regionsUnmatched bool

var regionsCmd = &cobra.Command{
	Use:   "regions",
	Short: "List departments with their antenna and project count",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initCatalog("regions", nil)
		if err != nil {
			return err
		}
		d := env.load(ctx)
		if s := d.Status(); s != "" {
			_, _ = fmt.Fprintln(cmd.ErrOrStderr(), s)
		}

		out := cmd.OutOrStdout()
		if regionsUnmatched {
			for _, key := range d.Index.Unmatched() {
				_, _ = fmt.Fprintln(out, key)
			}
			return nil
		}

		st := viewer.FilterState{Categories: cfg.Viewer.Categories}
		res := viewer.Render(d, st)

		w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		_, _ = fmt.Fprintln(w, "CODE\tNAME\tANTENNA\tPROJECTS")
		_, _ = fmt.Fprintln(w, "----\t----\t-------\t--------")
		for _, v := range viewer.RegionViews(d.Index, st, res.Counts) {
			_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%d\n", orDash(v.Code), v.Name, orDash(v.Antenna), v.Count)
		}
		_ = w.Flush()
		_, _ = fmt.Fprintf(out, "%d département(s), %d projet(s) sans département\n",
			d.Index.Len(), res.Visible-sumCounts(res.Counts))
		return nil
	},
}

func sumCounts(counts map[string]int) int {
	n := 0
	for _, c := range counts {
		n += c
	}
	return n
}

func init() {
	regionsCmd.Flags().BoolVar(&regionsUnmatched, "unmatched", false, "only print department names the ownership table does not cover")
	rootCmd.AddCommand(regionsCmd)
}
