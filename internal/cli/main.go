package cli

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func Main() {
	_ = godotenv.Load() // best-effort: load .env if present
	configureLogger()

	root := &cobra.Command{
		Use:          "supoclip <source>",
		Short:        "Compose short vertical clips from a video file or URL",
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, args[0])
		},
	}

	root.SetOut(os.Stdout)
	root.SetErr(os.Stderr)
	root.SilenceErrors = true

	// Visible flags
	root.Flags().String("out", "out", "Output directory")
	root.Flags().Int("clips", 5, "Maximum number of clips")
	root.Flags().String("profile", "high", "Encoding profile (high|medium)")
	root.Flags().String("transitions", "", "Directory of transition mp4 assets")
	root.Flags().String("segments", "", "JSON file of pre-selected segments (skips LLM selection)")

	// Hidden tuning flags (internal)
	root.Flags().Float64("ratio", 9.0/16.0, "Target crop aspect ratio (w/h)")
	root.Flags().Int("caption-words", 3, "Words per caption")
	_ = root.Flags().MarkHidden("ratio")
	_ = root.Flags().MarkHidden("caption-words")

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
