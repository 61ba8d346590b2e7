package cmd

import (
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/jsphweid/amtdata/config"
	"github.com/jsphweid/amtdata/logger"
)

var (
	configPath string
	logLevel   string
)

var rootCmd = &cobra.Command{
	Use:          "amtdata",
	Short:        "Prepares audio/MIDI transcription examples",
	Long:         `Crops recordings, aligns their MIDI targets and exports or serves the resulting training examples.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		_, err := logger.Init(logLevel)
		return err
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "amtdata.yaml", "path to the YAML config")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "debug, info, warn or error")
}

func Execute() {
	cobra.CheckErr(rootCmd.Execute())
}

func loadConfig() (*config.Config, error) {
	return config.Read(os.DirFS(filepath.Dir(configPath)), filepath.Base(configPath))
}
