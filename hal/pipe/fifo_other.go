//go:build !unix

package pipe

import (
	"fmt"

	"github.com/ardnew/usbuart/hal"
	"github.com/ardnew/usbuart/pkg"
)

// OpenFIFO is not available on this platform.
func OpenFIFO(busDir string, raiser hal.Raiser, packetSize int) (*Transport, string, error) {
	return nil, "", fmt.Errorf("%w: named pipes require a unix system", pkg.ErrInvalidParameter)
}
