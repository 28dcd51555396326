package commands

import (
	"github.com/born-ml/invsqrt/internal/config"
	"github.com/born-ml/invsqrt/internal/logging"
	"github.com/spf13/cobra"
)

const version = "v0.0.1-dev"

var (
	cfgFile string
	verbose bool

	// cfg is populated before any subcommand runs.
	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "invsqrt",
	Short: "Inverse square roots on the GPU",
	Long: `invsqrt uploads a buffer of 32-bit floats to a WebGPU device, runs a
compute kernel computing 1/sqrt(x) for every element, and reads the results
back. Zero maps to NaN.`,
	Version:           version,
	SilenceUsage:      true,
	PersistentPreRunE: loadConfig,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.invsqrt/invsqrt.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
}

func loadConfig(cmd *cobra.Command, _ []string) error {
	loaded, err := config.Load(cfgFile)
	if err != nil {
		return err
	}
	if verbose {
		loaded.Logging.Level = "debug"
	}
	if err := logging.Init(loaded.Logging.Level, loaded.Logging.File, loaded.Logging.Console); err != nil {
		return err
	}
	cfg = loaded
	return nil
}
