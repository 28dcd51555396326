package commands

import (
	"fmt"
	"text/tabwriter"

	"github.com/born-ml/invsqrt/backend/webgpu"
	"github.com/spf13/cobra"
)

var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "List GPU adapters",
	Long: `List every adapter WebGPU exposes and whether it offers the default
device features (timestamp-query).`,
	Args: cobra.NoArgs,
	RunE: runDevices,
}

func init() {
	rootCmd.AddCommand(devicesCmd)
}

func runDevices(cmd *cobra.Command, _ []string) error {
	reports, err := webgpu.ListAdapters()
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "#\tNAME\tVENDOR\tBACKEND\tTYPE\tSUITABLE\tMISSING")
	for i, r := range reports {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%v\t%v\n", i, r.Name, r.Vendor, r.Backend, r.AdapterType, r.Suitable(), r.Missing)
	}
	return w.Flush()
}
