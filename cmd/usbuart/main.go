// Command usbuart runs a USB CDC-ACM to dual-UART bridge on a host and
// controls bridges attached over USB.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ardnew/usbuart/config"
	"github.com/ardnew/usbuart/pkg"
)

var (
	configPath string
	settings   = config.New()
	cfg        *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "usbuart",
	Short: "USB CDC-ACM to dual-UART bridge",
	Long: `usbuart bridges one USB CDC-ACM function to two UARTs, only one of
which is connected to the host at a time.

The run command hosts a bridge on this machine, using serial ports for the
UARTs and stdin/stdout (or a pair of FIFOs) for the USB bulk endpoints. The
remaining commands talk to a bridge attached over USB.

Settings come from --config, then USBUART_* environment variables, then
flags.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return setup(settings, configPath)
	},
}

// setup loads the configuration into cfg and applies the log settings.
func setup(v *viper.Viper, path string) error {
	if err := config.Read(v, path); err != nil {
		return err
	}
	c, err := config.Decode(v)
	if err != nil {
		return err
	}
	level, _ := pkg.ParseLogLevel(c.Log.Level)
	format, _ := pkg.ParseLogFormat(c.Log.Format)
	pkg.SetLogLevel(level)
	pkg.SetLogOutput(os.Stderr, format)
	cfg = c
	pkg.LogDebug(pkg.ComponentCLI, "configuration loaded", "file", v.ConfigFileUsed())
	return nil
}

// bindFlag binds a flag to a configuration key so that an explicit flag
// overrides the file and environment.
func bindFlag(cmd *cobra.Command, key, flag string) {
	f := cmd.Flags().Lookup(flag)
	if f == nil {
		f = cmd.PersistentFlags().Lookup(flag)
	}
	if err := settings.BindPFlag(key, f); err != nil {
		panic(fmt.Sprintf("bind %s to %s: %v", flag, key, err))
	}
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&configPath, "config", "c", "", "configuration file (YAML)")
	pf.String("log-level", "warn", "log level: debug, info, warn, error")
	pf.String("log-format", "text", "log format: text, json")
	pf.String("vid", "0x1209", "USB vendor ID of the bridge, e.g. 0x0403")
	pf.String("pid", "0x0001", "USB product ID of the bridge")
	bindFlag(rootCmd, "log.level", "log-level")
	bindFlag(rootCmd, "log.format", "log-format")
	bindFlag(rootCmd, "usb.vendor_id", "vid")
	bindFlag(rootCmd, "usb.product_id", "pid")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
