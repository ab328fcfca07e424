package cdc

import (
	"fmt"
	"strings"

	"github.com/ardnew/usbuart/pkg"
)

// Channel identifies one of the physical UARTs behind the bridge.
type Channel uint8

// UART channels.
const (
	ChannelA Channel = 0
	ChannelB Channel = 1
)

// NumChannels is the number of physical UART channels.
const NumChannels = 2

// Valid reports whether c names a physical channel.
func (c Channel) Valid() bool {
	return c < NumChannels
}

// Other returns the channel that is not c.
func (c Channel) Other() Channel {
	if c == ChannelA {
		return ChannelB
	}
	return ChannelA
}

// String returns "A" or "B".
func (c Channel) String() string {
	switch c {
	case ChannelA:
		return "A"
	case ChannelB:
		return "B"
	default:
		return fmt.Sprintf("Channel(%d)", uint8(c))
	}
}

// ParseChannel accepts "a", "b", "0" or "1" in any case.
func ParseChannel(s string) (Channel, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "a", "0":
		return ChannelA, nil
	case "b", "1":
		return ChannelB, nil
	}
	return ChannelA, fmt.Errorf("%w: %q", pkg.ErrInvalidChannel, s)
}
