package usbid

import (
	"bufio"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"sync"
)

// DefaultPaths lists the usual locations of the usb.ids database.
var DefaultPaths = []string{
	"/usr/share/hwdata/usb.ids",
	"/var/lib/usbutils/usb.ids",
	"/usr/share/misc/usb.ids",
	"/usr/local/share/hwdata/usb.ids",
	"/opt/homebrew/share/hwdata/usb.ids",
}

// Database maps USB vendor and product IDs to names.
type Database struct {
	mu       sync.RWMutex
	vendors  map[uint16]string
	products map[uint32]string // vid<<16 | pid
	source   string
	paths    []string
}

// New returns a database that loads from paths, or [DefaultPaths] when
// paths is empty. The bridge's own identity is always known.
func New(paths ...string) *Database {
	if len(paths) == 0 {
		paths = DefaultPaths
	}
	db := &Database{
		vendors:  make(map[uint16]string),
		products: make(map[uint32]string),
		paths:    paths,
	}
	db.Add(0x1209, 0x0001, "pid.codes", "usbuart dual UART bridge")
	return db
}

func key(vid, pid uint16) uint32 {
	return uint32(vid)<<16 | uint32(pid)
}

// Add records a vendor and product name. An empty name leaves the
// existing entry alone.
func (db *Database) Add(vid, pid uint16, vendor, product string) {
	db.mu.Lock()
	defer db.mu.Unlock()
	if vendor != "" {
		db.vendors[vid] = vendor
	}
	if product != "" {
		db.products[key(vid, pid)] = product
	}
}

// Load reads the first database file found on the search path. It returns
// an error wrapping [fs.ErrNotExist] when none exists. Loading again after
// a success does nothing.
func (db *Database) Load() error {
	db.mu.RLock()
	done := db.source != ""
	db.mu.RUnlock()
	if done {
		return nil
	}

	for _, path := range db.paths {
		f, err := os.Open(path)
		if err != nil {
			continue
		}
		err = db.Parse(f)
		f.Close()
		if err != nil {
			return fmt.Errorf("parse %s: %w", path, err)
		}
		db.mu.Lock()
		db.source = path
		db.mu.Unlock()
		return nil
	}
	return fmt.Errorf("usb.ids: %w", fs.ErrNotExist)
}

// Source returns the file Load read, or "" if none was read.
func (db *Database) Source() string {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return db.source
}

// Parse merges entries in usb.ids format from r. Vendor lines are
// "vvvv  Name"; product lines under them are "\tpppp  Name". Interface
// lines (two tabs) and the class sections that follow the vendor list
// are skipped.
func (db *Database) Parse(r io.Reader) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	sc := bufio.NewScanner(r)
	var (
		vid    uint16
		vendor bool
	)
	for sc.Scan() {
		line := sc.Text()
		if line == "" || line[0] == '#' {
			continue
		}
		if line[0] != '\t' {
			id, name, ok := entry(line)
			vendor = ok
			if ok {
				vid = id
				db.vendors[vid] = name
			}
			continue
		}
		if !vendor || strings.HasPrefix(line, "\t\t") {
			continue
		}
		if pid, name, ok := entry(line[1:]); ok {
			db.products[key(vid, pid)] = name
		}
	}
	return sc.Err()
}

// entry splits "xxxx  Name" into its hex ID and name.
func entry(line string) (uint16, string, bool) {
	if len(line) < 6 || line[4] != ' ' {
		return 0, "", false
	}
	id, err := strconv.ParseUint(line[:4], 16, 16)
	if err != nil {
		return 0, "", false
	}
	name := strings.TrimSpace(line[5:])
	if name == "" {
		return 0, "", false
	}
	return uint16(id), name, true
}

// Vendor returns the vendor name of vid, or "".
func (db *Database) Vendor(vid uint16) string {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return db.vendors[vid]
}

// Product returns the product name of vid:pid, or "".
func (db *Database) Product(vid, pid uint16) string {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return db.products[key(vid, pid)]
}

// Describe returns "Vendor Product" for vid:pid, falling back to the hex
// IDs for names that are unknown.
func (db *Database) Describe(vid, pid uint16) string {
	v := db.Vendor(vid)
	if v == "" {
		v = fmt.Sprintf("%04x", vid)
	}
	p := db.Product(vid, pid)
	if p == "" {
		p = fmt.Sprintf("%04x", pid)
	}
	return v + " " + p
}

// DescribeHex is [Database.Describe] for IDs given as hex strings, as
// serial port enumeration reports them. It returns "" if either ID does
// not parse.
func (db *Database) DescribeHex(vid, pid string) string {
	v, err := strconv.ParseUint(strings.TrimPrefix(strings.ToLower(vid), "0x"), 16, 16)
	if err != nil {
		return ""
	}
	p, err := strconv.ParseUint(strings.TrimPrefix(strings.ToLower(pid), "0x"), 16, 16)
	if err != nil {
		return ""
	}
	return db.Describe(uint16(v), uint16(p))
}

// Len returns the number of vendors and products known.
func (db *Database) Len() (vendors, products int) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return len(db.vendors), len(db.products)
}
