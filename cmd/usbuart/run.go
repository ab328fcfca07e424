package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/ardnew/usbuart/bridge"
	"github.com/ardnew/usbuart/cdc"
	"github.com/ardnew/usbuart/config"
	"github.com/ardnew/usbuart/display"
	"github.com/ardnew/usbuart/hal"
	"github.com/ardnew/usbuart/hal/pipe"
	"github.com/ardnew/usbuart/hal/serialport"
	"github.com/ardnew/usbuart/irq"
	"github.com/ardnew/usbuart/pkg"
)

var runFIFO string

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Host a bridge on this machine",
	Long: `Host a bridge: UART A and UART B are serial ports, and the USB bulk
endpoints are stdin (OUT) and stdout (IN), or a pair of FIFOs created
under --fifo.

Send SIGUSR1 to show the status, SIGUSR2 to switch to the other UART.

Examples:
  usbuart run --uart-a /dev/ttyUSB0 --uart-b /dev/ttyUSB1
  usbuart run --uart-a /dev/ttyUSB0 --fifo /tmp/bus --display panel`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		ctl := irq.New(0)
		packetSize := cfg.Bridge.PacketSize

		var usb *pipe.Transport
		if runFIFO != "" {
			t, dir, err := pipe.OpenFIFO(runFIFO, ctl, packetSize)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.ErrOrStderr(), dir)
			usb = t
		} else {
			usb = pipe.New(cmd.InOrStdin(), cmd.OutOrStdout(), ctl, packetSize)
		}

		h, err := newBridgeHost(cfg, ctl, usb, cmd.ErrOrStderr())
		if err != nil {
			usb.Close()
			return err
		}
		defer h.close()

		go h.handleSignals(ctx)
		return h.run(ctx)
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	f := runCmd.Flags()
	f.String("uart-a", "", "serial port for UART A")
	f.String("uart-b", "", "serial port for UART B")
	f.String("display", "log", "status display: panel, log, off")
	f.String("policy", "flush", "switch policy: flush, drain")
	f.StringVar(&runFIFO, "fifo", "", "create FIFO endpoints under this directory instead of using stdio")
	bindFlag(runCmd, "uart.a", "uart-a")
	bindFlag(runCmd, "uart.b", "uart-b")
	bindFlag(runCmd, "display.mode", "display")
	bindFlag(runCmd, "bridge.switch_policy", "policy")
}

// bridgeHost owns a hosted bridge and the goroutines that stand in for
// its hardware.
type bridgeHost struct {
	ctl    *irq.Controller
	uart   *serialport.UART
	usb    *pipe.Transport
	bridge *bridge.Bridge
	panel  *display.Panel
}

func newBridgeHost(c *config.Config, ctl *irq.Controller, usb *pipe.Transport, panelOut io.Writer) (*bridgeHost, error) {
	bc, err := c.BridgeConfig()
	if err != nil {
		return nil, err
	}
	if bc.BreakToggle {
		pkg.LogWarn(pkg.ComponentCLI, "serial ports do not report breaks, break toggle disabled")
		bc.BreakToggle = false
	}
	uart, err := serialport.Open(c.Ports(), bc.LineCoding, ctl)
	if err != nil {
		return nil, err
	}

	h := &bridgeHost{ctl: ctl, uart: uart, usb: usb}
	var disp hal.Display
	switch c.DisplayMode() {
	case display.ModePanel:
		h.panel = display.NewPanel(panelOut)
		disp = h.panel
	case display.ModeLog:
		disp = display.Log{}
	}

	h.bridge, err = bridge.New(bc, uart, usb, ctl, disp)
	if err != nil {
		uart.Close()
		return nil, err
	}
	uart.Attach(h.bridge)
	usb.Attach(h.bridge)
	return h, nil
}

// run initializes the bridge and serves it until ctx is cancelled, the
// OUT stream ends or a port fails.
func (h *bridgeHost) run(ctx context.Context) error {
	ctlCtx, stopCtl := context.WithCancel(context.WithoutCancel(ctx))
	ctlErr := make(chan error, 1)
	go func() { ctlErr <- h.ctl.Run(ctlCtx) }()
	defer func() {
		stopCtl()
		<-ctlErr
	}()

	var err error
	if !h.ctl.Call(func() { err = h.bridge.Init() }) {
		return pkg.ErrNotRunning
	}
	if err != nil {
		return fmt.Errorf("init bridge: %w", err)
	}
	pkg.LogInfo(pkg.ComponentCLI, "bridge running",
		"uartA", h.uart.Name(cdc.ChannelA),
		"uartB", h.uart.Name(cdc.ChannelB))

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return h.uart.Run(gctx)
	})
	g.Go(func() error {
		defer cancel()
		return h.usb.Run(gctx)
	})
	if h.panel != nil {
		g.Go(func() error { return h.panel.Run(gctx) })
	}
	err = g.Wait()

	h.ctl.Call(func() {
		if err := h.bridge.Deinit(); err != nil {
			pkg.LogWarn(pkg.ComponentCLI, "deinit", "error", err)
		}
	})
	in, out := h.usb.Stats()
	pkg.LogInfo(pkg.ComponentCLI, "bridge stopped", "inBytes", in, "outBytes", out)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// request runs a control request against the bridge in handler context,
// as the USB stack would on receiving its SETUP packet.
func (h *bridgeHost) request(build func(*cdc.SetupPacket)) error {
	var err error
	if !h.ctl.Call(func() {
		var s cdc.SetupPacket
		build(&s)
		_, err = h.bridge.ClassRequest(&s)
	}) {
		return pkg.ErrNotRunning
	}
	return err
}

func (h *bridgeHost) show() error {
	return h.request(func(s *cdc.SetupPacket) { cdc.ShowStatusSetup(s, 0) })
}

func (h *bridgeHost) toggle() error {
	return h.request(func(s *cdc.SetupPacket) {
		target := h.bridge.Active().Other()
		if ch, ok := h.bridge.PendingSwitch(); ok {
			target = ch.Other()
		}
		cdc.SelectUARTSetup(s, 0, target)
	})
}

func (h *bridgeHost) handleSignals(ctx context.Context) {
	if showSignal == nil {
		return
	}
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, showSignal, toggleSignal)
	defer signal.Stop(sig)
	for {
		select {
		case <-ctx.Done():
			return
		case s := <-sig:
			var err error
			if s == showSignal {
				err = h.show()
			} else {
				err = h.toggle()
			}
			if err != nil {
				pkg.LogWarn(pkg.ComponentCLI, "signal request failed", "signal", s, "error", err)
			}
		}
	}
}

func (h *bridgeHost) close() error {
	return errors.Join(h.uart.Close(), h.usb.Close())
}
