package chipopen

import (
	"errors"
	"fmt"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"

	"github.com/BertoldVdb/ktd2026/ktd2026"
)

type periphBus struct {
	bus i2c.Bus
}

func (p *periphBus) Write(addr uint16, w []byte) error {
	return p.bus.Tx(addr, w, nil)
}

func (p *periphBus) WriteRead(addr uint16, w, r []byte) error {
	return p.bus.Tx(addr, w, r)
}

func newPlatformDevice(bus i2c.BusCloser, enable gpio.PinOut, addr uint, logFunc ktd2026.LogFunc) *Device {
	return &Device{
		Chip: ktd2026.New(&periphBus{bus: bus}, uint16(addr), logFunc),
		closeFunc: func() error {
			var err error
			if enable != nil {
				err = enable.Out(gpio.Low)
			}
			if errBus := bus.Close(); err == nil {
				err = errBus
			}
			return err
		},
	}
}

// OpenChipPlatform opens the chip on a host I2C bus. If enablePin is not
// empty that GPIO is driven high while the chip is open.
func OpenChipPlatform(busID string, enablePin string, addr uint, logFunc ktd2026.LogFunc) (*Device, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("could not init host: %v", err)
	}

	bus, err := i2creg.Open(busID)
	if err != nil {
		return nil, fmt.Errorf("could not open bus: %v", err)
	}

	var enable gpio.PinOut
	if enablePin != "" {
		pin := gpioreg.ByName(enablePin)
		if pin == nil {
			bus.Close()
			return nil, errors.New("enable gpio not found")
		}

		if err := pin.Out(gpio.High); err != nil {
			bus.Close()
			return nil, fmt.Errorf("could not drive enable gpio: %v", err)
		}
		enable = pin
	}

	return newPlatformDevice(bus, enable, addr, logFunc), nil
}
