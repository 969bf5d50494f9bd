package main

import (
	"fmt"
	"os"

	"github.com/rescp17/deskTransfer/internal/history"
	"github.com/rescp17/deskTransfer/internal/util"
	"github.com/spf13/cobra"
)

func newHistoryCmd(c *cli) *cobra.Command {
	var (
		clearAll bool
		export   string
	)
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show, export or clear the local transfer history",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := c.historyStore()
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			if export != "" {
				n, err := exportHistory(store, export)
				if err != nil {
					return err
				}
				fmt.Fprintf(w, "Exported %d records to %s\n", n, export)
				return nil
			}
			if clearAll {
				if err := store.Clear(); err != nil {
					return err
				}
				fmt.Fprintln(w, "History cleared.")
				return nil
			}

			records, err := store.Load()
			if err != nil {
				return err
			}
			if len(records) == 0 {
				fmt.Fprintln(w, "No transfers recorded.")
				return nil
			}
			fmt.Fprintf(w, "%s %s %s %s %s %s\n",
				util.PadRight("TIME", 19), util.PadRight("TYPE", 8), util.PadRight("STATUS", 9),
				util.PadLeft("SIZE", 10), util.PadRight("FILE", 32), "PEER")
			for _, r := range records {
				fmt.Fprintf(w, "%s %s %s %s %s %s\n",
					util.PadRight(r.Time.Local().Format(history.TimeLayout), 19),
					util.PadRight(r.Type, 8),
					util.PadRight(r.Status, 9),
					util.PadLeft(util.FormatSize(int64(r.Filesize)), 10),
					util.PadRight(r.Filename, 32),
					r.Peer)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&clearAll, "clear", false, "delete all recorded transfers")
	cmd.Flags().StringVar(&export, "export", "", "write the history to `FILE` as tab-separated text")
	cmd.MarkFlagsMutuallyExclusive("clear", "export")
	return cmd
}

func exportHistory(store *history.Store, path string) (int, error) {
	f, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("export history: %w", err)
	}
	n, err := store.Export(f)
	if cerr := f.Close(); err == nil && cerr != nil {
		err = fmt.Errorf("export history: %w", cerr)
	}
	return n, err
}
