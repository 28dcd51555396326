package commands

import (
	"fmt"
	"strconv"

	"github.com/born-ml/invsqrt/backend/webgpu"
	"github.com/born-ml/invsqrt/internal/logging"
	"github.com/spf13/cobra"
)

var (
	runCPU        bool
	runKernelPath string
	runEntryPoint string
	runBestEffort bool
)

var runCmd = &cobra.Command{
	Use:   "run VALUE...",
	Short: "Compute 1/sqrt(x) for each value",
	Long: `Run uploads the values to the GPU, dispatches the kernel once and prints
one result per line, in input order.

Examples:
  invsqrt run 4 25 100
  invsqrt run --cpu 0 1 2`,
	Args: cobra.MinimumNArgs(1),
	RunE: runInverseSqrt,
}

func init() {
	runCmd.Flags().BoolVar(&runCPU, "cpu", false, "compute on the host instead of the GPU")
	runCmd.Flags().StringVar(&runKernelPath, "kernel", "", "prebuilt SPIR-V kernel (overrides kernel.path)")
	runCmd.Flags().StringVar(&runEntryPoint, "entry-point", "", "kernel entry point (overrides kernel.entry_point)")
	runCmd.Flags().BoolVar(&runBestEffort, "best-effort", false, "skip requested device features the adapter lacks (overrides device.best_effort)")
	rootCmd.AddCommand(runCmd)
}

func runInverseSqrt(cmd *cobra.Command, args []string) error {
	values, err := parseValues(args)
	if err != nil {
		return err
	}

	var out []float32
	if runCPU {
		out = webgpu.InverseSqrtCPU(values)
	} else {
		opts := webgpu.OptionsFromConfig(cfg)
		if runKernelPath != "" {
			opts.KernelPath = runKernelPath
		}
		if runEntryPoint != "" {
			opts.EntryPoint = runEntryPoint
		}
		if runBestEffort {
			opts.BestEffort = true
		}

		session, err := webgpu.Open(opts)
		if err != nil {
			return err
		}
		defer session.Close()
		logging.Infof("using %s", session.Device())

		out, err = session.InverseSqrt(values)
		if err != nil {
			return err
		}
	}

	w := cmd.OutOrStdout()
	for _, v := range out {
		fmt.Fprintln(w, strconv.FormatFloat(float64(v), 'g', -1, 32))
	}
	return nil
}

func parseValues(args []string) ([]float32, error) {
	values := make([]float32, len(args))
	for i, a := range args {
		f, err := strconv.ParseFloat(a, 32)
		if err != nil {
			return nil, fmt.Errorf("argument %d: %q is not a float32", i+1, a)
		}
		values[i] = float32(f)
	}
	return values, nil
}
