package commands

import (
	"github.com/spf13/cobra"

	"github.com/ZanzyTHEbar/virtual-photogrid/vpg/assets"
)

var (
	remoteURL  string
	filterOpts assets.Filter
)

func addSourceFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&remoteURL, "remote", "", "read from a vpg server at this base URL instead of the local library")
	cmd.Flags().StringVar(&filterOpts.AlbumID, "album", "", "only assets in this album")
	cmd.Flags().StringVar(&filterOpts.PersonID, "person", "", "only assets tagged with this person")
	cmd.Flags().BoolVar(&filterOpts.FavoritesOnly, "favorites", false, "only favorites")
	cmd.Flags().BoolVar(&filterOpts.WithArchived, "archived", false, "include archived assets")
}

// withSource runs fn against the remote server or the local library.
func withSource(cmd *cobra.Command, fn func(src timelineSource) error) error {
	if remoteURL != "" {
		return fn(remoteSource(remoteURL))
	}
	a, err := openApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(a.library)
}

var bucketsCmd = &cobra.Command{
	Use:   "buckets",
	Short: "Print the timeline bucket layout",
	RunE: func(cmd *cobra.Command, args []string) error {
		size, err := bucketSize()
		if err != nil {
			return err
		}
		return withSource(cmd, func(src timelineSource) error {
			layout, err := src.TimeBuckets(cmd.Context(), size, filterOpts)
			if err != nil {
				return err
			}
			total := 0
			for _, b := range layout {
				out.Outputf("%-10s %6d\n", b.TimeBucket, b.Count)
				total += b.Count
			}
			out.Outputf("%d buckets, %d assets\n", len(layout), total)
			return nil
		})
	},
}

func init() {
	addSourceFlags(bucketsCmd)
}
