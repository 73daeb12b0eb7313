package encode

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/tphakala/wavenc/internal/conf"
)

// Command creates the encode command for converting WAV files and directories.
func Command() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "encode [file.wav|directory]...",
		Short: "Encode WAV files to MP3",
		Long: `Encode WAV files to MP3 in parallel. Directories are scanned for *.wav
files. Existing destinations are skipped unless --overwrite is given.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			settings := conf.GetSettings()
			if len(args) == 0 {
				if settings.Input.Path == "" {
					return fmt.Errorf("no input given and input.path is not configured")
				}
				args = []string{settings.Input.Path}
			}
			return Run(cmd.Context(), cmd.OutOrStdout(), settings, args)
		},
	}

	setupFlags(cmd)

	return cmd
}

// flagBindings maps encode flags to their configuration keys
var flagBindings = map[string]string{
	"output":    "output.path",
	"recursive": "input.recursive",
	"threads":   "encoder.threads",
	"bitrate":   "encoder.bitrate",
	"overwrite": "encoder.overwrite",
	"report":    "output.report",
}

// setupFlags defines flags specific to the encode command and binds them
// to configuration so they override the config file and environment.
func setupFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("output", "o", "", "Output directory, defaults to next to each source")
	cmd.Flags().BoolP("recursive", "r", false, "Recursively encode subdirectories")
	cmd.Flags().IntP("threads", "j", 0, "Number of encoder threads, 0 uses all cores")
	cmd.Flags().IntP("bitrate", "b", 0, "MP3 bitrate in kbps, 0 derives it from each source")
	cmd.Flags().Bool("overwrite", false, "Replace existing output files")
	cmd.Flags().String("report", "", "Write a YAML run report to this file")

	for flag, key := range flagBindings {
		if err := viper.BindPFlag(key, cmd.Flags().Lookup(flag)); err != nil {
			panic(fmt.Sprintf("error binding flag %s: %v", flag, err))
		}
	}
}
