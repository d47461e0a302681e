package main

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(killCmd)
	rootCmd.AddCommand(priorityCmd)
	priorityCmd.AddCommand(priorityGetCmd)
	priorityCmd.AddCommand(prioritySetCmd)
	rootCmd.AddCommand(outputCmd)
	rootCmd.AddCommand(consoleCmd)

	outputCmd.Flags().IntVarP(&lines, "lines", "n", 20, "number of lines")
	consoleCmd.Flags().IntVarP(&lines, "lines", "n", 20, "number of lines")
}

var lines int

func parsePID(s string) (int, error) {
	pid, err := strconv.Atoi(s)
	if err != nil || pid <= 0 {
		return 0, fmt.Errorf("invalid pid %q", s)
	}
	return pid, nil
}

var killCmd = &cobra.Command{
	Use:   "kill <pid>",
	Short: "Kill a process",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		pid, err := parsePID(args[0])
		if err != nil {
			return err
		}
		_, err = api.do(http.MethodPost, fmt.Sprintf("/api/procs/%d/kill", pid), nil, nil)
		return err
	},
}

var priorityCmd = &cobra.Command{
	Use:   "priority",
	Short: "Read or change a process priority",
}

var priorityGetCmd = &cobra.Command{
	Use:   "get <pid>",
	Short: "Print a process priority",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		pid, err := parsePID(args[0])
		if err != nil {
			return err
		}
		var out struct {
			Priority int `json:"priority"`
		}
		if err := api.getJSON(fmt.Sprintf("/api/procs/%d/priority", pid), nil, &out); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), out.Priority)
		return nil
	},
}

var prioritySetCmd = &cobra.Command{
	Use:   "set <pid> <priority>",
	Short: "Change a process priority and reset its budget",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		pid, err := parsePID(args[0])
		if err != nil {
			return err
		}
		prio, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("invalid priority %q", args[1])
		}
		_, err = api.do(http.MethodPut, fmt.Sprintf("/api/procs/%d/priority", pid), nil, map[string]int{"priority": prio})
		return err
	},
}

var outputCmd = &cobra.Command{
	Use:   "output <pid>",
	Short: "Print the recent output of a process, oldest first",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		pid, err := parsePID(args[0])
		if err != nil {
			return err
		}
		return printLines(cmd, fmt.Sprintf("/api/procs/%d/output", pid))
	},
}

var consoleCmd = &cobra.Command{
	Use:   "console",
	Short: "Print the recent kernel console, oldest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return printLines(cmd, "/api/console")
	},
}

// printLines fetches a newest-first line list and prints it in order.
func printLines(cmd *cobra.Command, path string) error {
	var out []string
	if err := api.getJSON(path, url.Values{"lines": {strconv.Itoa(lines)}}, &out); err != nil {
		return err
	}
	for i := len(out) - 1; i >= 0; i-- {
		fmt.Fprintln(cmd.OutOrStdout(), out[i])
	}
	return nil
}
