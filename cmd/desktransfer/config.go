package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/rescp17/deskTransfer/pkg/transfer"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const envPrefix = "DESKTRANSFER"

// settings are the options that belong to the command line tool rather than
// to the transfer engine.
type settings struct {
	OutputDir   string `mapstructure:"output_dir"`
	HistoryFile string `mapstructure:"history_file"`
	ImagesOnly  bool   `mapstructure:"images_only"`
}

// loadConfig merges defaults, the config file, DESKTRANSFER_* variables and
// bound flags, in increasing order of precedence.
func loadConfig(v *viper.Viper, cfgFile string) (*transfer.TransferConfig, settings, error) {
	def := transfer.DefaultTransferConfig()
	v.SetDefault("port", def.Port)
	v.SetDefault("chunk_size", def.ChunkSize)
	v.SetDefault("max_frame_size", def.MaxFrameSize)
	v.SetDefault("framing", def.Framing)
	v.SetDefault("collision_policy", def.CollisionPolicy)
	v.SetDefault("io_timeout", def.IOTimeout)
	v.SetDefault("dial_timeout", def.DialTimeout)
	v.SetDefault("max_connections", def.MaxConnections)
	v.SetDefault("event_buffer_size", def.EventBufferSize)
	v.SetDefault("client_name", def.ClientName)
	v.SetDefault("output_dir", ".")
	v.SetDefault("history_file", "")
	v.SetDefault("images_only", true)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(home)
		v.SetConfigType("yaml")
		v.SetConfigName(".desktransfer")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			return nil, settings{}, fmt.Errorf("read config: %w", err)
		}
	}

	cfg := transfer.DefaultTransferConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, settings{}, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, settings{}, fmt.Errorf("invalid configuration: %w", err)
	}

	var s settings
	if err := v.Unmarshal(&s); err != nil {
		return nil, settings{}, fmt.Errorf("decode config: %w", err)
	}
	return cfg, s, nil
}

// bindFlags binds config keys to flag names in flags.
func bindFlags(v *viper.Viper, flags *pflag.FlagSet, keys map[string]string) {
	for key, name := range keys {
		if err := v.BindPFlag(key, flags.Lookup(name)); err != nil {
			panic(fmt.Sprintf("bind flag %s: %v", name, err))
		}
	}
}
