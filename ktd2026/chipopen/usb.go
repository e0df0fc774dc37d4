package chipopen

import (
	"errors"
	"fmt"

	"github.com/ardnew/mcp2221a"
	"github.com/karalabe/hid"

	"github.com/BertoldVdb/ktd2026/ktd2026"
)

// usbBaudRate is the I2C clock used on the MCP2221A; the KTD2026 supports
// fast mode.
const usbBaudRate = 400000

type usbBus struct {
	dev *mcp2221a.MCP2221A
}

func (u *usbBus) Write(addr uint16, w []byte) error {
	return u.dev.I2C.Write(true, uint8(addr), w, uint16(len(w)))
}

func (u *usbBus) WriteRead(addr uint16, w, r []byte) error {
	if err := u.dev.I2C.Write(false, uint8(addr), w, uint16(len(w))); err != nil {
		return err
	}

	rx, err := u.dev.I2C.Read(true, uint8(addr), uint16(len(r)))
	if err != nil {
		return err
	}

	copy(r, rx)
	return nil
}

// findUSBIndex returns the enumeration index of the MCP2221A with the given
// serial number, or of the first one if serial is empty.
func findUSBIndex(serial string) (byte, error) {
	if !hid.Supported() {
		return 0, errors.New("USB HID is not supported on this platform")
	}

	for i, m := range mcp2221a.AttachedDevices(mcp2221a.VID, mcp2221a.PID) {
		if m.Serial == serial || serial == "" {
			return byte(i), nil
		}
	}

	return 0, errors.New("no device found")
}

// OpenChipUSB opens the chip behind an MCP2221A USB to I2C bridge.
func OpenChipUSB(serial string, addr uint, logFunc ktd2026.LogFunc) (*Device, error) {
	idx, err := findUSBIndex(serial)
	if err != nil {
		return nil, err
	}

	dev, err := mcp2221a.New(idx, mcp2221a.VID, mcp2221a.PID)
	if err != nil {
		return nil, fmt.Errorf("failed to open MCP2221A: %v", err)
	}

	if err := dev.I2C.SetConfig(usbBaudRate); err != nil {
		dev.Close()
		return nil, fmt.Errorf("failed to configure I2C: %v", err)
	}

	return &Device{
		Chip:      ktd2026.New(&usbBus{dev: dev}, uint16(addr), logFunc),
		closeFunc: dev.Close,
	}, nil
}
