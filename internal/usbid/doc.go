// Package usbid names USB vendors and products from the usb.ids database
// shipped with usbutils and hwdata.
//
//	db := usbid.New()
//	if err := db.Load(); err != nil {
//		// names fall back to hex IDs
//	}
//	fmt.Println(db.DescribeHex("0403", "6010"))
//
// Lookups are safe for concurrent use.
package usbid
