package main

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"

	"github.com/rescp17/deskTransfer/internal/history"
	"github.com/rescp17/deskTransfer/pkg/multiFilePicker"
	"github.com/rescp17/deskTransfer/pkg/sender"
	"github.com/rescp17/deskTransfer/pkg/transfer"
	"github.com/rescp17/deskTransfer/pkg/ui"
	"github.com/spf13/cobra"
)

func newSendCmd(c *cli) *cobra.Command {
	var (
		to       string
		allFiles bool
	)
	cmd := &cobra.Command{
		Use:   "send --to HOST[:PORT] [FILES...]",
		Short: "Send files to a receiver",
		Long: `Send files and directories to a running receiver. Directories are sent
recursively. Unless --all-files is given, only images are sent. Without FILES
an interactive picker opens.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			host, port, err := parseTarget(to, c.config.Port)
			if err != nil {
				return err
			}
			imagesOnly := c.settings.ImagesOnly && !allFiles
			paths := args
			if len(paths) == 0 {
				if c.plain {
					return errors.New("no files given")
				}
				paths, err = multiFilePicker.Pick(cmd.Context(), ".", imagesOnly)
				if err != nil {
					return err
				}
			}
			req := sender.SendRequest{
				Paths:      paths,
				Host:       host,
				Port:       port,
				ImagesOnly: imagesOnly,
			}
			return runSend(cmd, c, req)
		},
	}
	cmd.Flags().StringVarP(&to, "to", "t", "", "receiver address as HOST or HOST:PORT (required)")
	cmd.Flags().BoolVar(&allFiles, "all-files", false, "send every file, not only images")
	_ = cmd.MarkFlagRequired("to")
	return cmd
}

func runSend(cmd *cobra.Command, c *cli, req sender.SendRequest) error {
	store, err := c.historyStore()
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	app := sender.NewApp(c.config, nil)
	events, err := app.Send(ctx, req)
	if err != nil {
		return err
	}
	events = tap(events, store.Recorder(history.KindSent))

	target := net.JoinHostPort(req.Host, strconv.Itoa(req.Port))
	if c.plain {
		err = printEvents(cmd.OutOrStdout(), events)
	} else {
		err = ui.Run(ctx, ui.Sender, "Sending to "+target, events, app.Cancel)
		app.Cancel()
		for range events {
		}
	}
	app.Wait()
	if errors.Is(err, transfer.ErrCancelled) {
		return fmt.Errorf("transfer to %s cancelled", target)
	}
	return err
}

// parseTarget splits HOST[:PORT]. A bare host, including an unbracketed IPv6
// address, gets defaultPort.
func parseTarget(to string, defaultPort int) (string, int, error) {
	to = strings.TrimSpace(to)
	if to == "" {
		return "", 0, &transfer.ValidationError{Field: "to", Reason: "must not be empty"}
	}
	host, portStr, err := net.SplitHostPort(to)
	if err != nil {
		// No port given.
		if ip := net.ParseIP(strings.Trim(to, "[]")); ip != nil {
			return ip.String(), defaultPort, nil
		}
		if strings.Contains(to, ":") {
			return "", 0, &transfer.ValidationError{Field: "to", Reason: fmt.Sprintf("cannot parse %q", to)}
		}
		return to, defaultPort, nil
	}
	port, err := strconv.Atoi(portStr)
	if err != nil || port <= 0 || port > 65535 {
		return "", 0, &transfer.ValidationError{Field: "to", Reason: fmt.Sprintf("invalid port %q", portStr)}
	}
	if host == "" {
		return "", 0, &transfer.ValidationError{Field: "to", Reason: "missing host"}
	}
	return host, port, nil
}
