// Package chipopen opens a KTD2026 on one of the supported transports.
package chipopen

import (
	"errors"
	"strconv"
	"strings"

	"periph.io/x/conn/v3"

	"github.com/BertoldVdb/ktd2026/ktd2026"
	"github.com/BertoldVdb/ktd2026/ktd2026/simbus"
)

// Device is a chip together with the transport it was opened on.
type Device struct {
	*ktd2026.Chip

	closeFunc func() error
	closed    bool
}

var _ conn.Resource = (*Device)(nil)

// Close destroys the chip and releases the transport. The outputs are left
// as they are; call Halt first to switch them off.
func (d *Device) Close() error {
	if d.closed {
		return nil
	}
	d.closed = true

	d.Chip.Destroy()

	if d.closeFunc != nil {
		return d.closeFunc()
	}
	return nil
}

// OpenChipSim opens a chip on an in-memory bus.
func OpenChipSim(addr uint, logFunc ktd2026.LogFunc) (*Device, error) {
	bus := simbus.New(uint16(addr))

	return &Device{
		Chip: ktd2026.New(bus, uint16(addr), logFunc),
	}, nil
}

func getPart(parts []string, index int, def string) string {
	if index >= len(parts) || parts[index] == "" {
		return def
	}
	return parts[index]
}

func parseAddr(s string) (uint, error) {
	addr, err := strconv.ParseUint(s, 0, 8)
	if err != nil {
		return 0, err
	}
	if addr > 0x7F {
		return 0, errors.New("I2C address must be 7 bit")
	}
	return uint(addr), nil
}

// OpenChip opens the chip described by path:
//
//	platform:<bus>:<enable gpio>:<addr>
//	usb:<serial>:<addr>
//	sim::<addr>
//
// Empty fields select the defaults (first bus, no enable gpio, first
// MCP2221A, address 0x30).
func OpenChip(path string, logFunc ktd2026.LogFunc) (*Device, error) {
	parts := strings.Split(path, ":")
	defAddr := "0x" + strconv.FormatUint(ktd2026.AddressDefault, 16)

	switch parts[0] {
	case "usb":
		serial := getPart(parts, 1, "")
		i2cAddr, err := parseAddr(getPart(parts, 2, defAddr))
		if err != nil {
			return nil, err
		}
		return OpenChipUSB(serial, i2cAddr, logFunc)

	case "platform":
		bus := getPart(parts, 1, "")
		enablePin := getPart(parts, 2, "")
		i2cAddr, err := parseAddr(getPart(parts, 3, defAddr))
		if err != nil {
			return nil, err
		}
		return OpenChipPlatform(bus, enablePin, i2cAddr, logFunc)

	case "sim":
		i2cAddr, err := parseAddr(getPart(parts, 2, defAddr))
		if err != nil {
			return nil, err
		}
		return OpenChipSim(i2cAddr, logFunc)
	}

	return nil, errors.New("device type not supported, use 'platform', 'usb' or 'sim'")
}
