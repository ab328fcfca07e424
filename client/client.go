package client

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/gousb"

	"github.com/ardnew/usbuart/cdc"
	"github.com/ardnew/usbuart/pkg"
)

// controller issues control transfers on the default pipe.
type controller interface {
	Control(rType, request uint8, val, idx uint16, data []byte) (int, error)
}

// Options locate and configure a bridge.
type Options struct {
	VendorID  uint16
	ProductID uint16
	Interface uint8         // Communication interface number
	Timeout   time.Duration // Control transfer timeout, 0 for none
	Detach    bool          // Detach a kernel driver for the duration of a transfer
}

// Client sends control requests to a bridge.
type Client struct {
	ctrl  controller
	iface uint8
	close func() error
}

// Open finds the first device matching opts and returns a client for it.
// Returns [pkg.ErrDeviceNotFound] when no device matches.
func Open(opts Options) (*Client, error) {
	ctx := gousb.NewContext()
	dev, err := ctx.OpenDeviceWithVIDPID(gousb.ID(opts.VendorID), gousb.ID(opts.ProductID))
	if err != nil {
		ctx.Close()
		return nil, fmt.Errorf("open %04x:%04x: %w", opts.VendorID, opts.ProductID, err)
	}
	if dev == nil {
		ctx.Close()
		return nil, fmt.Errorf("%w: %04x:%04x", pkg.ErrDeviceNotFound, opts.VendorID, opts.ProductID)
	}
	if err := dev.SetAutoDetach(opts.Detach); err != nil {
		pkg.LogWarn(pkg.ComponentClient, "auto detach unavailable", "error", err)
	}
	dev.ControlTimeout = opts.Timeout

	pkg.LogDebug(pkg.ComponentClient, "opened bridge",
		"device", dev.String(),
		"interface", opts.Interface)

	c := newClient(dev, opts.Interface)
	c.close = func() error {
		errDev := dev.Close()
		errCtx := ctx.Close()
		return errors.Join(errDev, errCtx)
	}
	return c, nil
}

func newClient(ctrl controller, iface uint8) *Client {
	return &Client{ctrl: ctrl, iface: iface}
}

// Close releases the device.
func (c *Client) Close() error {
	if c.close == nil {
		return nil
	}
	fn := c.close
	c.close = nil
	return fn()
}

// do runs one control transfer described by setup with data as its data
// stage, returning the number of bytes transferred.
func (c *Client) do(setup *cdc.SetupPacket, data []byte) (int, error) {
	pkg.LogDebug(pkg.ComponentClient, "control transfer", "setup", setup.String())
	n, err := c.ctrl.Control(setup.RequestType, setup.Request, setup.Value, setup.Index, data)
	if err != nil {
		if errors.Is(err, gousb.ErrorPipe) {
			return n, fmt.Errorf("%s: %w: %w", cdc.RequestName(setup.Request), pkg.ErrStall, err)
		}
		return n, fmt.Errorf("%s: %w", cdc.RequestName(setup.Request), err)
	}
	return n, nil
}

// Status reads the bridge counters, active channel and line coding.
func (c *Client) Status() (cdc.Status, error) {
	var setup cdc.SetupPacket
	cdc.GetStatusSetup(&setup, c.iface)
	buf := make([]byte, setup.Length)
	n, err := c.do(&setup, buf)
	if err != nil {
		return cdc.Status{}, err
	}
	var st cdc.Status
	if err := cdc.ParseStatus(buf[:n], &st); err != nil {
		return cdc.Status{}, err
	}
	return st, nil
}

// Select asks the bridge to switch to ch at its next quiescent point.
func (c *Client) Select(ch cdc.Channel) error {
	if !ch.Valid() {
		return fmt.Errorf("%w: %d", pkg.ErrInvalidChannel, ch)
	}
	var setup cdc.SetupPacket
	cdc.SelectUARTSetup(&setup, c.iface, ch)
	_, err := c.do(&setup, nil)
	return err
}

// Show asks the bridge to render its status on the display.
func (c *Client) Show() error {
	var setup cdc.SetupPacket
	cdc.ShowStatusSetup(&setup, c.iface)
	_, err := c.do(&setup, nil)
	return err
}

// LineCoding reads the line coding of the active channel.
func (c *Client) LineCoding() (cdc.LineCoding, error) {
	var setup cdc.SetupPacket
	cdc.GetLineCodingSetup(&setup, c.iface)
	buf := make([]byte, setup.Length)
	n, err := c.do(&setup, buf)
	if err != nil {
		return cdc.LineCoding{}, err
	}
	var lc cdc.LineCoding
	if err := cdc.ParseLineCoding(buf[:n], &lc); err != nil {
		return cdc.LineCoding{}, fmt.Errorf("%w: %w", pkg.ErrShortResponse, err)
	}
	return lc, nil
}

// SetLineCoding applies lc to the active channel.
func (c *Client) SetLineCoding(lc cdc.LineCoding) error {
	if err := lc.Validate(); err != nil {
		return err
	}
	var setup cdc.SetupPacket
	cdc.SetLineCodingSetup(&setup, c.iface)
	buf := make([]byte, cdc.LineCodingSize)
	lc.MarshalTo(buf)
	_, err := c.do(&setup, buf)
	return err
}

// SetLines drives DTR and RTS on the active channel.
func (c *Client) SetLines(dtr, rts bool) error {
	var setup cdc.SetupPacket
	cdc.SetControlLineStateSetup(&setup, c.iface, dtr, rts)
	_, err := c.do(&setup, nil)
	return err
}

// Break asserts a break of millis milliseconds on the active channel.
// [cdc.BreakIndefinite] holds it until a [cdc.BreakOff] request.
func (c *Client) Break(millis uint16) error {
	var setup cdc.SetupPacket
	cdc.SendBreakSetup(&setup, c.iface, millis)
	_, err := c.do(&setup, nil)
	return err
}
