package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const EXIT_FAILURE = -1

func newRootCommand() *cobra.Command {
	v := viper.New()
	cmd := &cobra.Command{
		Use:          "kwlsim",
		Short:        "Simulator for ventilation units speaking the variable protocol over Modbus/TCP",
		SilenceUsage: true,
	}
	cmd.AddCommand(
		newServeCommand(v),
		newReadCommand(v),
		newWriteCommand(v),
		newListCommand(),
		newVersionCommand(),
	)
	return cmd
}

func main() {
	if err := newRootCommand().ExecuteContext(context.Background()); err != nil {
		os.Exit(EXIT_FAILURE)
	}
}
