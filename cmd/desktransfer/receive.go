package main

import (
	"context"
	"fmt"
	"net"
	"strconv"

	"github.com/rescp17/deskTransfer/internal/history"
	"github.com/rescp17/deskTransfer/pkg/discovery"
	"github.com/rescp17/deskTransfer/pkg/receiver"
	"github.com/rescp17/deskTransfer/pkg/ui"
	"github.com/spf13/cobra"
)

func newReceiveCmd(c *cli) *cobra.Command {
	var (
		bind        string
		timestamped bool
		noAnnounce  bool
	)
	cmd := &cobra.Command{
		Use:   "receive",
		Short: "Receive files from senders until stopped",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := receiver.ServeOptions{
				BindAddress: bind,
				Port:        c.config.Port,
				OutputDir:   c.settings.OutputDir,
				Timestamped: timestamped,
				Announce:    !noAnnounce,
			}
			return runReceive(cmd, c, opts)
		},
	}
	cmd.Flags().StringP("out", "o", ".", "directory to write received files to")
	cmd.Flags().StringVar(&bind, "bind", "0.0.0.0", "address to listen on")
	cmd.Flags().BoolVar(&timestamped, "timestamped", false, "receive into a new YYYYmmdd_HHMMSS directory under --out")
	cmd.Flags().BoolVar(&noAnnounce, "no-announce", false, "do not announce the receiver over mDNS")
	bindFlags(c.v, cmd.Flags(), map[string]string{"output_dir": "out"})
	return cmd
}

func runReceive(cmd *cobra.Command, c *cli, opts receiver.ServeOptions) error {
	store, err := c.historyStore()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	var registrar discovery.Adapter
	if opts.Announce {
		registrar = discovery.NewMDNSAdapter()
	}
	app := receiver.NewApp(c.config, registrar)
	events, err := app.Serve(ctx, opts)
	if err != nil {
		return err
	}
	events = tap(events, store.Recorder(history.KindReceived))

	addr := app.Addr().String()
	if tcp, ok := app.Addr().(*net.TCPAddr); ok {
		addr = net.JoinHostPort(tcp.IP.String(), strconv.Itoa(tcp.Port))
	}
	title := fmt.Sprintf("Receiving on %s into %s", addr, app.OutputDir())

	if c.plain {
		fmt.Fprintln(cmd.OutOrStdout(), title)
		// Session errors are reported per line; they do not fail the receiver.
		_ = printEvents(cmd.OutOrStdout(), events)
		return nil
	}

	err = ui.Run(ctx, ui.Receiver, title, events, cancel)
	cancel()
	if cerr := app.Close(); cerr != nil {
		return cerr
	}
	for range events {
	}
	return err
}
