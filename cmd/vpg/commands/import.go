package commands

import (
	"github.com/spf13/cobra"

	"github.com/ZanzyTHEbar/virtual-photogrid/vpg/ingest"
)

var importCmd = &cobra.Command{
	Use:   "import DIR",
	Short: "Import the images and videos under DIR into the library",
	Long: `Import every image and video under DIR. Paths matching patterns in
DIR/.vpgignore are skipped. Thumbnail, EXIF and metadata jobs run before the
command exits.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		importer := ingest.NewImporter(a.library, a.dispatcher, logger)
		res, importErr := importer.ImportDirectory(cmd.Context(), args[0])
		closeErr := a.Close()
		if importErr != nil {
			return importErr
		}
		stats := a.runner.Stats()
		out.Outputf("imported %d assets (%d ignored, %d unsupported)\n", res.Imported, res.Ignored, res.Unsupported)
		out.Outputf("jobs: %d processed, %d failed, %d skipped\n", stats.Processed, stats.Failed, stats.Skipped)
		if stats.Failed > 0 {
			out.Warning("some jobs failed; rerun with --log-level debug for details")
		}
		return closeErr
	},
}
