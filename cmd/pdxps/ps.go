package main

import (
	"fmt"
	"io"
	"net/url"
	"strconv"

	"github.com/edirooss/pdxkernel/internal/kernel"
	"github.com/spf13/cobra"
)

var psMax int

func init() {
	rootCmd.AddCommand(psCmd)
	psCmd.Flags().IntVarP(&psMax, "max", "m", 0, "report at most this many processes (default: table size)")
}

var psCmd = &cobra.Command{
	Use:   "ps",
	Short: "List active processes",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		q := url.Values{}
		if psMax > 0 {
			q.Set("max", strconv.Itoa(psMax))
		}
		var procs []kernel.ProcInfo
		if err := api.getJSON("/api/procs", q, &procs); err != nil {
			return err
		}
		printProcs(cmd.OutOrStdout(), procs)
		return nil
	},
}

func printProcs(w io.Writer, procs []kernel.ProcInfo) {
	fmt.Fprintf(w, "PID\tName         UID\tGID\tPPID\tPrio\tElapsed\tCPU\tState\tSize\n")
	for _, p := range procs {
		fmt.Fprintf(w, "%d\t%-12s %d\t%d\t%d\t%d\t%s\t%s\t%s\t%d\n",
			p.PID, p.Name, p.UID, p.GID, p.PPID, p.Priority,
			millis(p.ElapsedTicks), millis(p.CPUTotalTicks), p.State, p.Size)
	}
}

// millis renders a tick count (1 tick = 1ms) as seconds.
func millis(ticks uint64) string {
	return fmt.Sprintf("%d.%03d", ticks/1000, ticks%1000)
}
