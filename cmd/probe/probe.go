package probe

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"github.com/tphakala/wavenc/internal/wave"
)

// Command creates the probe command for inspecting WAV headers.
func Command() *cobra.Command {
	return &cobra.Command{
		Use:   "probe [file.wav]...",
		Short: "Print the decoded header of WAV files",
		Long:  "Validate WAV files the way encode does and print their format.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, args)
		},
	}
}

func run(cmd *cobra.Command, paths []string) error {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "FILE\tCHANNELS\tRATE\tBITS\tFRAMES\tDURATION\tSTATUS")

	var bad int
	for _, path := range paths {
		info, err := wave.Probe(path)
		if err != nil {
			bad++
			fmt.Fprintf(w, "%s\t-\t-\t-\t-\t-\t%v\n", path, err)
			continue
		}
		fmt.Fprintf(w, "%s\t%d\t%d\t%d\t%d\t%s\tok\n",
			path, info.Channels, info.SampleRate, info.BitsPerSample,
			info.SampleCount, info.Duration().Round(time.Millisecond))
	}
	if err := w.Flush(); err != nil {
		return err
	}

	if bad > 0 {
		return fmt.Errorf("%d of %d files are not supported", bad, len(paths))
	}
	return nil
}
