package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/evertras/bubble-table/table"
	"github.com/spf13/cobra"
	"go.bug.st/serial/enumerator"

	"github.com/ardnew/usbuart/internal/usbid"
	"github.com/ardnew/usbuart/pkg"
)

var portsCmd = &cobra.Command{
	Use:   "ports",
	Short: "List serial ports that can serve as UARTs",
	Long: `List the serial ports on this machine. USB adapters are annotated with
their vendor and product names from the usb.ids database.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ports, err := enumerator.GetDetailedPortsList()
		if err != nil {
			return fmt.Errorf("list ports: %w", err)
		}
		usbOnly, _ := cmd.Flags().GetBool("usb")
		tableFormat, _ := cmd.Flags().GetBool("table")

		db := usbid.New()
		if err := db.Load(); err != nil {
			pkg.LogDebug(pkg.ComponentCLI, "usb.ids unavailable", "error", err)
		}

		rows := portRows(ports, db, usbOnly)
		out := cmd.OutOrStdout()
		if len(rows) == 0 {
			fmt.Fprintln(out, "No serial ports found")
			return nil
		}
		if tableFormat {
			fmt.Fprintln(out, renderPortTable(rows))
		} else {
			renderPortList(out, rows)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(portsCmd)
	portsCmd.Flags().BoolP("usb", "u", false, "only list USB serial adapters")
	portsCmd.Flags().BoolP("table", "t", false, "display output in a styled table")
}

// portRow is one listed serial port.
type portRow struct {
	Name   string
	ID     string // vid:pid, empty for non-USB ports
	Device string // vendor and product names
	Serial string
}

func portRows(ports []*enumerator.PortDetails, db *usbid.Database, usbOnly bool) []portRow {
	rows := make([]portRow, 0, len(ports))
	for _, p := range ports {
		if usbOnly && !p.IsUSB {
			continue
		}
		r := portRow{Name: p.Name}
		if p.IsUSB {
			r.ID = strings.ToLower(p.VID + ":" + p.PID)
			r.Device = db.DescribeHex(p.VID, p.PID)
			if r.Device == "" {
				r.Device = p.Product
			}
			r.Serial = p.SerialNumber
		}
		rows = append(rows, r)
	}
	return rows
}

func renderPortList(w io.Writer, rows []portRow) {
	for _, r := range rows {
		if r.ID == "" {
			fmt.Fprintln(w, r.Name)
			continue
		}
		fmt.Fprintf(w, "%s\t%s\t%s", r.Name, r.ID, r.Device)
		if r.Serial != "" {
			fmt.Fprintf(w, "\t[%s]", r.Serial)
		}
		fmt.Fprintln(w)
	}
}

const (
	columnPort   = "port"
	columnID     = "id"
	columnDevice = "device"
	columnSerial = "serial"
)

func renderPortTable(rows []portRow) string {
	columns := []table.Column{
		table.NewColumn(columnPort, "Port", 16),
		table.NewColumn(columnID, "VID:PID", 10),
		table.NewFlexColumn(columnDevice, "Device", 1),
		table.NewColumn(columnSerial, "Serial", 14),
	}
	data := make([]table.Row, 0, len(rows))
	for _, r := range rows {
		data = append(data, table.NewRow(table.RowData{
			columnPort:   r.Name,
			columnID:     r.ID,
			columnDevice: r.Device,
			columnSerial: r.Serial,
		}))
	}
	return table.New(columns).
		WithRows(data).
		WithTargetWidth(96).
		BorderRounded().
		HeaderStyle(lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#cba6f7"))).
		View()
}
