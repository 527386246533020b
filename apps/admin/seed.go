package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func (cli *commandLine) seedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Create the configured classes and sections with their default fee structures",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cli.seed(cmd.Context()); err != nil {
				return err
			}
			_, _ = fmt.Fprintln(cli.out, "school seeded")
			return nil
		},
	}
}
