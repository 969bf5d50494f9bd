package main

import (
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"

	"github.com/rescp17/deskTransfer/internal/history"
	"github.com/rescp17/deskTransfer/pkg/transfer"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// cli holds what every subcommand shares once the root command has loaded
// the configuration.
type cli struct {
	v       *viper.Viper
	cfgFile string
	verbose bool
	logFile string
	plain   bool

	config   *transfer.TransferConfig
	settings settings
	logClose io.Closer
}

func newRootCmd() *cobra.Command {
	c := &cli{v: viper.New()}

	cmd := &cobra.Command{
		Use:   "desktransfer",
		Short: "Send images and files to another machine on the local network",
		Long: `DeskTransfer moves batches of files between machines on the same network
over a plain TCP connection.

Run "desktransfer receive" on the target machine, then
"desktransfer send --to HOST FILES..." on the other one. Receivers announce
themselves over mDNS; "desktransfer peers" lists them.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, s, err := loadConfig(c.v, c.cfgFile)
			if err != nil {
				return err
			}
			c.config = cfg
			c.settings = s
			closer, err := setupLogging(c.logFile, c.verbose, c.plain)
			if err != nil {
				return err
			}
			c.logClose = closer
			if used := c.v.ConfigFileUsed(); used != "" {
				slog.Debug("Using config file", "path", used)
			}
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if c.logClose != nil {
				if err := c.logClose.Close(); err != nil {
					fmt.Fprintf(os.Stderr, "failed to close log file: %v\n", err)
				}
			}
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&c.cfgFile, "config", "", "config file (default is $HOME/.desktransfer.yaml)")
	flags.BoolVarP(&c.verbose, "verbose", "v", false, "log at debug level")
	flags.StringVar(&c.logFile, "log-file", "debug.log", "file to write logs to")
	flags.BoolVar(&c.plain, "plain", false, "print line-based progress and log to stderr instead of the interactive view")
	flags.IntP("port", "p", transfer.DefaultPort, "TCP port of the receiver")
	flags.Int("chunk-size", transfer.DefaultChunkSize, "bytes per data frame when sending")
	flags.String("framing", transfer.FramingJSON, "wire framing to offer: json or tagged")
	flags.String("name", "", "name presented to the peer during the handshake")
	flags.Duration("io-timeout", transfer.DefaultTransferConfig().IOTimeout, "timeout for each network read or write")
	bindFlags(c.v, flags, map[string]string{
		"port":        "port",
		"chunk_size":  "chunk-size",
		"framing":     "framing",
		"client_name": "name",
		"io_timeout":  "io-timeout",
	})

	cmd.AddCommand(
		newSendCmd(c),
		newReceiveCmd(c),
		newPeersCmd(c),
		newHistoryCmd(c),
	)
	return cmd
}

// historyStore opens the configured history file.
func (c *cli) historyStore() (*history.Store, error) {
	path := c.settings.HistoryFile
	if path == "" {
		p, err := history.DefaultPath()
		if err != nil {
			return nil, err
		}
		path = p
	}
	return history.NewStore(path), nil
}

// setupLogging sends slog output to logFile, or to stderr in plain mode. The
// interactive view owns the terminal otherwise.
func setupLogging(logFile string, verbose, plain bool) (io.Closer, error) {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}

	if plain || logFile == "" {
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, opts)))
		return nil, nil
	}

	f, err := os.OpenFile(logFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	log.SetOutput(f)
	slog.SetDefault(slog.New(slog.NewTextHandler(f, opts)))
	return f, nil
}
