// Package tinygobus connects the driver to a TinyGo I2C bus.
//
//	i2c := machine.I2C0
//	i2c.Configure(machine.I2CConfig{Frequency: 400 * machine.KHz})
//	chip := ktd2026.New(tinygobus.New(i2c), ktd2026.AddressDefault, nil)
package tinygobus

import (
	"tinygo.org/x/drivers"

	"github.com/BertoldVdb/ktd2026/ktd2026"
)

type bus struct {
	i2c drivers.I2C
}

func New(i2c drivers.I2C) ktd2026.Bus {
	return &bus{i2c: i2c}
}

func (b *bus) Write(addr uint16, w []byte) error {
	return b.i2c.Tx(addr, w, nil)
}

// WriteRead relies on Tx issuing a repeated start between w and r.
func (b *bus) WriteRead(addr uint16, w, r []byte) error {
	return b.i2c.Tx(addr, w, r)
}
