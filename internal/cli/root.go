package cli

import (
	"github.com/spf13/cobra"

	"github.com/masubs/masubs/internal/config"
	"github.com/masubs/masubs/internal/logging"
)

var (
	verbose    bool
	configPath string
	logger     = logging.Nop()
	cfg        = config.Default()
)

var rootCmd = &cobra.Command{
	Use:   "masubs",
	Short: "Generate and burn subtitles for audio and video files",
	Long: `masubs transcribes the speech in a media file into an SRT or VTT
subtitle file, and hardcodes subtitle files into videos with ffmpeg.

Recognition runs locally with the openai-whisper program by default, or
through the OpenAI and Gemini APIs.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		logger = logging.NewLogger(verbose)

		loaded, path, err := config.Resolve(configPath)
		if err != nil {
			return err
		}
		cfg = loaded
		if path != "" {
			logger.Debugw("Loaded config", "path", path)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logger.Sync()
	},
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().
		BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().
		StringVar(&configPath, "config", "", "Config file (default $XDG_CONFIG_HOME/masubs/config.yaml)")
	rootCmd.PersistentFlags().StringP("output", "o", "", "Output file path")
	rootCmd.PersistentFlags().
		StringP("language", "l", "", "Language code (e.g., en, id, fr)")
}
