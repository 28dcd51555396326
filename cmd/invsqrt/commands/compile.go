package commands

import (
	"fmt"
	"os"

	"github.com/born-ml/invsqrt/internal/kernel"
	"github.com/born-ml/invsqrt/internal/logging"
	"github.com/spf13/cobra"
)

var (
	compileOutput string
	compileWGSL   bool
)

var compileCmd = &cobra.Command{
	Use:   "compile",
	Short: "Build the kernel to SPIR-V",
	Long: `Compile translates the bundled WGSL kernel to SPIR-V and writes it to a file.
The result can be passed back with --kernel or kernel.path.`,
	Args: cobra.NoArgs,
	RunE: runCompile,
}

func init() {
	compileCmd.Flags().StringVarP(&compileOutput, "output", "o", "inverse_sqrt.spv", "output file")
	compileCmd.Flags().BoolVar(&compileWGSL, "wgsl", false, "print the WGSL source instead")
	rootCmd.AddCommand(compileCmd)
}

func runCompile(cmd *cobra.Command, _ []string) error {
	if compileWGSL {
		_, err := fmt.Fprint(cmd.OutOrStdout(), kernel.Source())
		return err
	}

	spirv, err := kernel.Compile()
	if err != nil {
		return err
	}
	if err := os.WriteFile(compileOutput, spirv, 0o600); err != nil {
		return fmt.Errorf("write %s: %w", compileOutput, err)
	}

	logging.Infof("wrote %d bytes of SPIR-V to %s", len(spirv), compileOutput)
	fmt.Fprintf(cmd.OutOrStdout(), "%s (%d bytes, entry point %s)\n", compileOutput, len(spirv), kernel.EntryPoint)
	return nil
}
