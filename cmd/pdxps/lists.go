package main

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/edirooss/pdxkernel/internal/kernel"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(dumpCmd)
	rootCmd.AddCommand(checkCmd)
}

var listCmd = &cobra.Command{
	Use:       "list <free|embryo|sleep|ready|run|zombie>",
	Short:     "Print a process state list",
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{"free", "embryo", "sleep", "ready", "run", "zombie"},
	RunE: func(cmd *cobra.Command, args []string) error {
		return printText(cmd, "/api/lists/"+args[0])
	},
}

var statsJSON bool

func init() {
	statsCmd.Flags().BoolVar(&statsJSON, "json", false, "print the raw counts as JSON")
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Count the processes on each list",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if !statsJSON {
			return printText(cmd, "/api/lists/stats.txt")
		}
		var st kernel.ListStats
		if err := api.getJSON("/api/lists/stats", nil, &st); err != nil {
			return err
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(st)
	},
}

var dumpCmd = &cobra.Command{
	Use:   "dump",
	Short: "Print the process table",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return printText(cmd, "/api/procdump")
	},
}

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Verify the process lists are consistent",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := api.do(http.MethodGet, "/api/check", nil, nil); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "ok")
		return nil
	},
}

func printText(cmd *cobra.Command, path string) error {
	data, err := api.do(http.MethodGet, path, nil, nil)
	if err != nil {
		return err
	}
	_, err = cmd.OutOrStdout().Write(data)
	return err
}
