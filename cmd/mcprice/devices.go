package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/cwbudde/algo-mcprice/accel"
)

func newDevicesCmd(c *cli) *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "devices",
		Short: "List the devices of the selected backend",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			names := []string{c.cfg.Backend}
			if all {
				names = accel.Names()
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "BACKEND\tINDEX\tNAME\tVENDOR\tMAX WG\tCAPS")

			for _, name := range names {
				b, err := c.lookup(name)
				if err != nil {
					return err
				}
				if !b.Available() {
					fmt.Fprintf(tw, "%s\t-\tunavailable\t\t\t\n", name)
					continue
				}

				devices, err := b.Devices()
				if err != nil {
					return fmt.Errorf("list %s devices: %w", name, err)
				}
				for i, d := range devices {
					fmt.Fprintf(tw, "%s\t%d\t%s\t%s\t%d\t%s\n", name, i, d.Name, d.Vendor, d.MaxWorkGroupSize, d.ComputeCap)
				}
			}
			return tw.Flush()
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "list every registered backend")
	return cmd
}

// lookup resolves a backend by name, honouring the host section for "host".
func (c *cli) lookup(name string) (accel.Backend, error) {
	saved := c.cfg.Backend
	c.cfg.Backend = name
	defer func() { c.cfg.Backend = saved }()

	return c.backend()
}
