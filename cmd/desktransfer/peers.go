package main

import (
	"context"
	"fmt"
	"time"

	"github.com/rescp17/deskTransfer/internal/util"
	"github.com/rescp17/deskTransfer/pkg/discovery"
	"github.com/rescp17/deskTransfer/pkg/sender"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func newPeersCmd(c *cli) *cobra.Command {
	var timeout time.Duration
	cmd := &cobra.Command{
		Use:   "peers",
		Short: "List receivers announcing themselves on the local network",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			app := sender.NewApp(c.config, discovery.NewMDNSAdapter())
			services, err := browse(ctx, app)
			if err != nil {
				return err
			}
			printPeers(cmd, services)
			return nil
		},
	}
	cmd.Flags().DurationVar(&timeout, "timeout", 3*time.Second, "how long to listen for announcements")
	return cmd
}

// browse collects announcements until ctx is done and returns the last
// snapshot. A lookup error stops browsing.
func browse(ctx context.Context, app *sender.App) ([]discovery.ServiceInfo, error) {
	results, err := app.Discover(ctx)
	if err != nil {
		return nil, err
	}

	var latest []discovery.ServiceInfo
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		for {
			select {
			case res, ok := <-results:
				if !ok {
					return nil
				}
				if res.Error != nil {
					return res.Error
				}
				latest = res.Services
			case <-gctx.Done():
				return nil
			}
		}
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return latest, nil
}

func printPeers(cmd *cobra.Command, services []discovery.ServiceInfo) {
	w := cmd.OutOrStdout()
	if len(services) == 0 {
		fmt.Fprintln(w, "No receivers found.")
		return
	}
	fmt.Fprintf(w, "%s %s %s\n", util.PadRight("NAME", 28), util.PadRight("ADDRESS", 24), "FRAMING")
	for _, s := range services {
		name := s.Text[discovery.TxtName]
		if name == "" {
			name = s.Name
		}
		framing := s.Text[discovery.TxtFraming]
		if framing == "" {
			framing = "json"
		}
		fmt.Fprintf(w, "%s %s %s\n", util.PadRight(name, 28), util.PadRight(s.Address(), 24), framing)
	}
}
