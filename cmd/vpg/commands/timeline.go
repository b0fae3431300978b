package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ZanzyTHEbar/virtual-photogrid/vpg/grid"
)

var (
	timelineBuckets int
	viewportWidth   float64
	viewportHeight  float64
)

var timelineCmd = &cobra.Command{
	Use:   "timeline",
	Short: "Load the first buckets of the timeline and print their layout",
	Long: `Load the bucket layout into a timeline grid, fetch the newest buckets and
print each bucket's state, asset count and height. Loaded buckets show their
estimated height for the given viewport width.`,
	RunE: runTimeline,
}

func init() {
	addSourceFlags(timelineCmd)
	timelineCmd.Flags().IntVarP(&timelineBuckets, "buckets", "n", 3, "number of buckets to load")
	timelineCmd.Flags().Float64Var(&viewportWidth, "width", 1280, "viewport width in pixels")
	timelineCmd.Flags().Float64Var(&viewportHeight, "height", 800, "viewport height in pixels")
}

func runTimeline(cmd *cobra.Command, args []string) error {
	size, err := bucketSize()
	if err != nil {
		return err
	}
	return withSource(cmd, func(src timelineSource) error {
		ctx := cmd.Context()
		layout, err := src.TimeBuckets(ctx, size, filterOpts)
		if err != nil {
			return err
		}

		store := newStore(src, size)
		defer store.Close()
		if err := store.SetInitialState(viewportHeight, viewportWidth, layout, filterOpts); err != nil {
			return err
		}

		keys := make([]string, 0, timelineBuckets)
		for i := 0; i < len(layout) && i < timelineBuckets; i++ {
			keys = append(keys, layout[i].TimeBucket)
		}
		if err := store.Prefetch(ctx, keys...); err != nil {
			out.Error("some buckets failed to load", err)
		}

		for _, b := range store.Buckets() {
			loaded := ""
			if b.State == grid.Loaded {
				loaded = fmt.Sprintf(" loaded=%d", len(b.Assets))
			}
			out.Outputf("%-10s %-7s count=%-5d height=%8.1f%s\n", b.Key, b.State, b.Count, b.Height, loaded)
		}
		inv, err := store.VerifyInvariants()
		if err != nil {
			return err
		}
		m := store.Metrics()
		out.Outputf("timeline height %.1f px, %d items loaded, %d fetches (avg %s)\n",
			store.TimelineHeight(), len(store.Items()), m.FetchesIssued, m.AverageFetchTime())
		if !inv.OK() {
			out.Warning(fmt.Sprintf("invariant violations: %v", inv.Violations))
		}
		return nil
	})
}
