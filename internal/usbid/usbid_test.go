package usbid

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const sample = `# usb.ids sample
0403  Future Technology Devices International, Ltd
	6001  FT232 Serial (UART) IC
	6010  FT2232C/D/H Dual UART/FIFO IC
		00  interface line
10c4  Silicon Labs
	ea60  CP210x UART Bridge
zzzz  not a vendor
	0001  orphan product

C 02  Communications
	02  Abstract (modem)
`

func TestParse(t *testing.T) {
	db := New("/nonexistent")
	if err := db.Parse(strings.NewReader(sample)); err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	tests := []struct {
		vid, pid    uint16
		wantVendor  string
		wantProduct string
	}{
		{0x0403, 0x6001, "Future Technology Devices International, Ltd", "FT232 Serial (UART) IC"},
		{0x0403, 0x6010, "Future Technology Devices International, Ltd", "FT2232C/D/H Dual UART/FIFO IC"},
		{0x10c4, 0xea60, "Silicon Labs", "CP210x UART Bridge"},
		{0x10c4, 0x0001, "Silicon Labs", ""},
		{0x1209, 0x0001, "pid.codes", "usbuart dual UART bridge"},
		{0xdead, 0xbeef, "", ""},
	}
	for _, tt := range tests {
		if got := db.Vendor(tt.vid); got != tt.wantVendor {
			t.Errorf("Vendor(%04x) = %q, want %q", tt.vid, got, tt.wantVendor)
		}
		if got := db.Product(tt.vid, tt.pid); got != tt.wantProduct {
			t.Errorf("Product(%04x, %04x) = %q, want %q", tt.vid, tt.pid, got, tt.wantProduct)
		}
	}

	// Class entries are not filed under the last vendor.
	if got := db.Product(0x10c4, 0x0002); got != "" {
		t.Errorf("Product(10c4, 0002) = %q, want empty", got)
	}
	vendors, products := db.Len()
	if vendors != 3 || products != 4 {
		t.Errorf("Len() = %d, %d, want 3, 4", vendors, products)
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "usb.ids")
	if err := os.WriteFile(path, []byte(sample), 0o644); err != nil {
		t.Fatal(err)
	}

	db := New("/nonexistent/usb.ids", path)
	if err := db.Load(); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got := db.Source(); got != path {
		t.Errorf("Source() = %q, want %q", got, path)
	}

	if err := os.Remove(path); err != nil {
		t.Fatal(err)
	}
	if err := db.Load(); err != nil {
		t.Errorf("second Load() error = %v, want nil", err)
	}
}

func TestLoadNotFound(t *testing.T) {
	db := New("/nonexistent/usb.ids")
	if err := db.Load(); !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("Load() error = %v, want fs.ErrNotExist", err)
	}
	if got := db.Source(); got != "" {
		t.Errorf("Source() = %q, want empty", got)
	}
}

func TestDescribe(t *testing.T) {
	db := New("/nonexistent")
	if err := db.Parse(strings.NewReader(sample)); err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	tests := []struct {
		vid, pid string
		want     string
	}{
		{"10c4", "ea60", "Silicon Labs CP210x UART Bridge"},
		{"10C4", "0x0001", "Silicon Labs 0001"},
		{"abcd", "0001", "abcd 0001"},
		{"", "0001", ""},
		{"10c4", "xyz", ""},
	}
	for _, tt := range tests {
		if got := db.DescribeHex(tt.vid, tt.pid); got != tt.want {
			t.Errorf("DescribeHex(%q, %q) = %q, want %q", tt.vid, tt.pid, got, tt.want)
		}
	}
}

func TestAdd(t *testing.T) {
	db := New("/nonexistent")
	db.Add(0x2e8a, 0x000a, "Raspberry Pi", "")
	if got := db.Vendor(0x2e8a); got != "Raspberry Pi" {
		t.Errorf("Vendor(2e8a) = %q, want Raspberry Pi", got)
	}
	if got := db.Product(0x2e8a, 0x000a); got != "" {
		t.Errorf("Product(2e8a, 000a) = %q, want empty", got)
	}
}
