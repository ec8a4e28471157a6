package main

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// config holds the options shared across lgscan's subcommands, bound to
// both cobra flags and viper (so LGSCAN_* environment variables can set
// them too). No config file is read.
type config struct {
	conf *viper.Viper
}

func newRootCmd() *cobra.Command {
	cfg := &config{conf: viper.New()}
	cfg.conf.SetEnvPrefix("LGSCAN")
	cfg.conf.AutomaticEnv()

	root := &cobra.Command{
		Use:   "lgscan",
		Short: "Run and inspect lgvm bytecode programs",
	}

	persistent := root.PersistentFlags()
	persistent.String("log-file", "", "write logs to this file instead of stderr (rotated via lumberjack)")
	persistent.Bool("debug", false, "enable debug-level logging")
	_ = cfg.conf.BindPFlag("log-file", persistent.Lookup("log-file"))
	_ = cfg.conf.BindPFlag("debug", persistent.Lookup("debug"))

	root.AddCommand(newRunCmd(cfg))
	root.AddCommand(newDisasmCmd(cfg))
	root.AddCommand(newReplCmd(cfg))
	return root
}

func (c *config) logger() (*zap.Logger, error) {
	return newLogger(c.conf.GetString("log-file"), c.conf.GetBool("debug"))
}
