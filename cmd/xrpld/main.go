package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var configFile string

	cmd := &cobra.Command{
		Use:     "xrpld",
		Short:   "ledgerd - a standalone consensus, transaction queue, and validation engine",
		Version: "0.1.0-dev",
	}
	cmd.PersistentFlags().StringVar(&configFile, "conf", "", "configuration file path")

	cmd.AddCommand(runCmd(&configFile))
	return cmd
}
