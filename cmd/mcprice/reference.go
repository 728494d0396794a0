package main

import (
	"fmt"

	"github.com/spf13/cobra"

	mcprice "github.com/cwbudde/algo-mcprice"
)

func newReferenceCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "reference",
		Short: "Print the closed-form Black-Scholes price",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p := c.params()
			if err := p.Validate(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Black-Scholes price of option is %.6g.\n", mcprice.BlackScholesCall(p))
			return nil
		},
	}
}
