package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/ardnew/usbuart/cdc"
	"github.com/ardnew/usbuart/client"
	"github.com/ardnew/usbuart/display"
	"github.com/ardnew/usbuart/hal"
	"github.com/ardnew/usbuart/internal/tui"
	"github.com/ardnew/usbuart/pkg"
)

func openClient() (*client.Client, error) {
	return client.Open(client.Options{
		VendorID:  cfg.USB.VendorID,
		ProductID: cfg.USB.ProductID,
		Interface: cfg.USB.Interface,
		Timeout:   cfg.USB.Timeout,
		Detach:    cfg.USB.Detach,
	})
}

// withClient opens the configured bridge, runs f and closes it.
func withClient(f func(*client.Client) error) error {
	c, err := openClient()
	if err != nil {
		return err
	}
	defer c.Close()
	return f(c)
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Read counters, active UART and line coding",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		panel, _ := cmd.Flags().GetBool("panel")
		return withClient(func(c *client.Client) error {
			st, err := c.Status()
			if err != nil {
				return err
			}
			ev := hal.DisplayEvent{Reason: hal.ReasonRequest, Status: st}
			if panel {
				fmt.Fprintln(cmd.OutOrStdout(), display.Render(ev))
			} else {
				fmt.Fprintln(cmd.OutOrStdout(), display.Line(ev))
			}
			return nil
		})
	},
}

var selectCmd = &cobra.Command{
	Use:       "select <a|b>",
	Short:     "Switch the bridge to another UART",
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{"a", "b"},
	RunE: func(cmd *cobra.Command, args []string) error {
		ch, err := cdc.ParseChannel(args[0])
		if err != nil {
			return err
		}
		return withClient(func(c *client.Client) error {
			return c.Select(ch)
		})
	},
}

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the bridge status on its display",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient((*client.Client).Show)
	},
}

var codingCmd = &cobra.Command{
	Use:   "coding [baud [stop parity bits]]",
	Short: "Read or set the line coding of the active UART",
	Long: `Without arguments, print the line coding of the active UART. With
arguments, set it. Omitted fields keep their current values.

Examples:
  usbuart coding
  usbuart coding 9600
  usbuart coding 57600 2 even 7`,
	Args: cobra.MaximumNArgs(4),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(func(c *client.Client) error {
			lc, err := c.LineCoding()
			if err != nil {
				return err
			}
			if len(args) > 0 {
				if lc, err = parseCoding(lc, args); err != nil {
					return err
				}
				if err := c.SetLineCoding(lc); err != nil {
					return err
				}
			}
			fmt.Fprintln(cmd.OutOrStdout(), lc)
			return nil
		})
	},
}

// parseCoding overrides fields of lc from "baud [stop parity bits]".
func parseCoding(lc cdc.LineCoding, args []string) (cdc.LineCoding, error) {
	if len(args) > 0 {
		baud, err := strconv.ParseUint(args[0], 10, 32)
		if err != nil {
			return lc, fmt.Errorf("%w: baud %q", pkg.ErrInvalidLineCoding, args[0])
		}
		lc.DTERate = uint32(baud)
	}
	if len(args) > 1 {
		stop, err := cdc.ParseStopBits(args[1])
		if err != nil {
			return lc, err
		}
		lc.CharFormat = stop
	}
	if len(args) > 2 {
		parity, err := cdc.ParseParity(strings.ToLower(args[2]))
		if err != nil {
			return lc, err
		}
		lc.ParityType = parity
	}
	if len(args) > 3 {
		bits, err := strconv.ParseUint(args[3], 10, 8)
		if err != nil {
			return lc, fmt.Errorf("%w: data bits %q", pkg.ErrInvalidLineCoding, args[3])
		}
		lc.DataBits = uint8(bits)
	}
	return lc, lc.Validate()
}

var linesCmd = &cobra.Command{
	Use:   "lines",
	Short: "Set DTR and RTS on the active UART",
	Long: `Set the DTR and RTS control lines. Lines not given are released.

Examples:
  usbuart lines --dtr
  usbuart lines --dtr --rts
  usbuart lines`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		dtr, _ := cmd.Flags().GetBool("dtr")
		rts, _ := cmd.Flags().GetBool("rts")
		return withClient(func(c *client.Client) error {
			return c.SetLines(dtr, rts)
		})
	},
}

var breakCmd = &cobra.Command{
	Use:   "break <ms|on|off>",
	Short: "Send a break on the active UART",
	Long: `Assert a break on the active UART for a number of milliseconds, or
hold it with "on" until "off".`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		millis, err := parseBreak(args[0])
		if err != nil {
			return err
		}
		return withClient(func(c *client.Client) error {
			return c.Break(millis)
		})
	},
}

// parseBreak converts a SEND_BREAK argument to its wValue.
func parseBreak(s string) (uint16, error) {
	switch strings.ToLower(s) {
	case "on":
		return cdc.BreakIndefinite, nil
	case "off":
		return cdc.BreakOff, nil
	}
	if d, err := time.ParseDuration(s); err == nil {
		s = strconv.FormatInt(d.Milliseconds(), 10)
	}
	ms, err := strconv.ParseUint(s, 10, 16)
	if err != nil || ms == cdc.BreakIndefinite {
		return 0, fmt.Errorf("%w: break %q", pkg.ErrInvalidParameter, s)
	}
	return uint16(ms), nil
}

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Watch and control a bridge interactively",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		interval, _ := cmd.Flags().GetDuration("interval")
		if interval <= 0 {
			return fmt.Errorf("%w: interval %s", pkg.ErrInvalidParameter, interval)
		}
		return withClient(func(c *client.Client) error {
			return tui.Run(c, interval)
		})
	},
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the effective configuration as YAML",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := cfg.YAML()
		if err != nil {
			return err
		}
		_, err = cmd.OutOrStdout().Write(data)
		return err
	},
}

func init() {
	rootCmd.AddCommand(statusCmd, selectCmd, showCmd, codingCmd, linesCmd, breakCmd, monitorCmd, configCmd)

	statusCmd.Flags().BoolP("panel", "p", false, "render the status as a panel")
	linesCmd.Flags().Bool("dtr", false, "assert DTR")
	linesCmd.Flags().Bool("rts", false, "assert RTS")
	monitorCmd.Flags().Duration("interval", 500*time.Millisecond, "status poll interval")
}
