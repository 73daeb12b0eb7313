package version

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
	"github.com/tphakala/wavenc/internal/buildinfo"
)

// Command creates the version command
func Command(build *buildinfo.Context) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "wavenc %s\n", build.GetVersion())
			fmt.Fprintf(out, "built:    %s\n", build.GetBuildDate())
			fmt.Fprintf(out, "revision: %s\n", build.GetRevision())
			fmt.Fprintf(out, "go:       %s %s/%s\n", runtime.Version(), runtime.GOOS, runtime.GOARCH)
		},
	}
}
