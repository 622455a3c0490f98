package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/carte/internal/export"
	"github.com/sells-group/carte/internal/viewer"
)

var (
	exportOpts filterFlags
	exportOut  string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write the projects matching a filter to an .xlsx file",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initCatalog("export", nil)
		if err != nil {
			return err
		}
		d := env.load(ctx)
		if !d.ProjectSrc.Loaded {
			return eris.Errorf("export: no projects loaded: %s", d.ProjectSrc.Error)
		}

		indexes := viewer.Filter(d.Projects, exportOpts.state(), d.Index)

		f, err := os.Create(exportOut)
		if err != nil {
			return eris.Wrap(err, "export: create output")
		}
		if err := export.WriteXLSX(f, d, indexes); err != nil {
			_ = f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return eris.Wrap(err, "export: close output")
		}

		zap.L().Info("export complete",
			zap.String("out", exportOut),
			zap.Int("projects", len(indexes)),
		)
		return nil
	},
}

func init() {
	exportOpts.register(exportCmd)
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "projets.xlsx", "output file")
	rootCmd.AddCommand(exportCmd)
}
