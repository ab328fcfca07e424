// Package client controls a usbuart bridge from the USB host through
// libusb. It issues the same CDC-ACM class and vendor requests that the
// bridge dispatches, built with the cdc package.
//
//	c, err := client.Open(client.Options{VendorID: 0x1209, ProductID: 0x0001})
//	if err != nil {
//		return err
//	}
//	defer c.Close()
//	st, err := c.Status()
package client
