package app

import (
	"fmt"

	"github.com/gosuri/uitable"
	"github.com/spf13/cobra"

	"github.com/autopeer-io/dronecontrol/internal/pilot/input"
)

func newKeysCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "keys",
		Short: "Print the keyboard bindings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), keysTable())
			return err
		},
	}
}

func keysTable() *uitable.Table {
	table := uitable.New()
	table.MaxColWidth = 40
	table.AddRow("KEY", "ACTION", "COMMAND", "INTERRUPT")
	for _, b := range input.Bindings() {
		table.AddRow(string(b.Key), b.Description, b.Command.Name(), b.Interrupt)
	}
	table.AddRow(string(input.QuitKey), "Quit", "-", false)
	return table
}
