package main

import (
	"fmt"
	"os"

	"github.com/edirooss/pdxkernel/internal/config"
	"github.com/spf13/cobra"
)

var (
	serverAddr string
	api        *client

	rootCmd = &cobra.Command{
		Use:               "pdxps",
		Short:             "inspect and control a running pdxkernel",
		Version:           fmt.Sprintf("%s (commit %s, built %s)", config.Version, config.GitCommit, config.BuildDate),
		SilenceUsage:      true,
		PersistentPreRunE: initClient,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&serverAddr, "server", "s", "http://127.0.0.1:8333", "debug server base URL")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func initClient(cmd *cobra.Command, args []string) error {
	c, err := newClient(serverAddr)
	if err != nil {
		return err
	}
	api = c
	return nil
}
