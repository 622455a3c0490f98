package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/carte/internal/antenna"
)

var tableFile string

var tableCmd = &cobra.Command{
	Use:   "table",
	Short: "Inspect the department ownership table",
}

// loadTableForCmd prefers --file, then the configured override.
func loadTableForCmd() (*antenna.Table, string, error) {
	if tableFile != "" {
		t, err := antenna.LoadTable(tableFile)
		return t, tableFile, err
	}
	t, err := ownershipTable()
	src := cfg.Ownership.TablePath
	if src == "" {
		src = "built-in"
	}
	return t, src, err
}

var tableCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Fail when a table key is not in canonical form or names an unknown antenna",
	RunE: func(cmd *cobra.Command, _ []string) error {
		t, src, err := loadTableForCmd()
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		orphans := t.Orphans()
		for _, o := range orphans {
			_, _ = fmt.Fprintf(out, "orphan: %s\n", o)
		}
		if len(orphans) > 0 {
			return eris.Errorf("table check: %d orphan key(s) in %s", len(orphans), src)
		}
		_, _ = fmt.Fprintf(out, "%s: %d departments, no orphans\n", src, t.Len())
		return nil
	},
}

var tableListCmd = &cobra.Command{
	Use:   "list",
	Short: "Print every department key with its antenna",
	RunE: func(cmd *cobra.Command, _ []string) error {
		t, _, err := loadTableForCmd()
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		_, _ = fmt.Fprintln(w, "DEPARTMENT\tANTENNA")
		for _, k := range t.Keys() {
			_, _ = fmt.Fprintf(w, "%s\t%s\n", k, t.Lookup(k))
		}
		return w.Flush()
	},
}

func init() {
	tableCmd.PersistentFlags().StringVar(&tableFile, "file", "", "YAML table to inspect instead of the configured one")
	tableCmd.AddCommand(tableCheckCmd, tableListCmd)
	rootCmd.AddCommand(tableCmd)
}
