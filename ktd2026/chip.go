// Package ktd2026 implements a Golang driver for the Kinetic KTD2026 four
// channel LED current driver.
//
// Register reads from this chip are not reliable. The driver therefore keeps a
// shadow copy of every register in host memory, computes all updates from that
// copy and only ever writes to the chip. A failed write is returned to the
// caller but the shadow copy keeps the intended value, so shadow and chip
// differ until that register is written again.
//
// A Chip is not safe for concurrent use.
package ktd2026

import (
	"errors"
	"fmt"
)

type LogFunc func(format string, params ...interface{})

var (
	ErrNotInitialized  = errors.New("ktd2026: channel assignment not initialized")
	ErrDestroyed       = errors.New("ktd2026: chip is destroyed")
	ErrInvalidChannel  = errors.New("ktd2026: invalid channel")
	ErrInvalidRegister = errors.New("ktd2026: invalid register")
)

// LEDParam maps one color to an output channel.
type LEDParam struct {
	Channel    Channel
	Brightness uint8
}

// Assignment maps the three logical colors to output channels. Brightness is
// the initial brightness of each color; it is recorded but not written.
type Assignment struct {
	Red   LEDParam
	Green LEDParam
	Blue  LEDParam
}

type Chip struct {
	bus     Bus
	address uint16

	leds        [NumColors]LEDParam
	initialized bool

	shadow shadowRegisters

	logFunc LogFunc
}

func (m *Chip) log(format string, params ...interface{}) {
	if m.logFunc != nil {
		m.logFunc(" * "+format, params...)
	}
}

// New creates a driver for the chip at address on bus. It does not talk to
// the chip. An address of 0 selects AddressDefault.
func New(bus Bus, address uint16, logFunc LogFunc) *Chip {
	if address == 0 {
		address = AddressDefault
	}

	return &Chip{
		bus:     bus,
		address: address,

		logFunc: logFunc,
	}
}

// Init sets the color to channel mapping and clears the shadow registers. It
// must be called before LEDOn. No bus traffic is generated.
func (m *Chip) Init(a Assignment) error {
	leds := [NumColors]LEDParam{
		Red:   a.Red,
		Green: a.Green,
		Blue:  a.Blue,
	}

	for _, l := range leds {
		if l.Channel >= NumChannels {
			return ErrInvalidChannel
		}
	}

	m.leds = leds
	m.initialized = true
	m.shadow.reset()

	m.log("Initialized: red=%d green=%d blue=%d", a.Red.Channel+1, a.Green.Channel+1, a.Blue.Channel+1)

	return nil
}

// Assignment returns the mapping set by Init.
func (m *Chip) Assignment() Assignment {
	return Assignment{
		Red:   m.leds[Red],
		Green: m.leds[Green],
		Blue:  m.leds[Blue],
	}
}

// Destroy returns the bus to the caller. The chip cannot be used afterwards.
func (m *Chip) Destroy() Bus {
	bus := m.bus
	m.bus = nil
	m.shadow.reset()
	return bus
}

func (m *Chip) Address() uint16 {
	return m.address
}

func (m *Chip) String() string {
	return fmt.Sprintf("KTD2026{addr=0x%02x}", m.address)
}

// updateDeviceRegister stores value in the shadow copy and writes the stored
// value to the chip. The shadow is not restored if the write fails.
func (m *Chip) updateDeviceRegister(reg Register, value byte) error {
	if reg >= NumRegisters {
		return ErrInvalidRegister
	}
	if m.bus == nil {
		return ErrDestroyed
	}

	m.shadow.set(reg, value)

	tx := [2]byte{reg.Addr(), m.shadow.get(reg)}

	m.log("Writing 0x%02x (%s): %02x", tx[0], reg, tx[1])

	return m.bus.Write(m.address, tx[:])
}

// ModifyField replaces the bits selected by mask in reg with value shifted to
// position. All other bits keep their shadow value.
func (m *Chip) ModifyField(reg Register, mask uint8, position uint8, value uint8) error {
	if reg >= NumRegisters {
		return ErrInvalidRegister
	}

	current := m.shadow.get(reg)
	updated := (current &^ mask) | ((value << position) & mask)

	return m.updateDeviceRegister(reg, updated)
}

// WriteRegister writes value to reg through the shadow copy.
func (m *Chip) WriteRegister(reg Register, value byte) error {
	return m.updateDeviceRegister(reg, value)
}

// ReadRegister reads reg from the chip. The result is not reliable and is
// never used to update the shadow copy.
func (m *Chip) ReadRegister(reg Register) (byte, error) {
	if m.bus == nil {
		return 0, ErrDestroyed
	}

	var rx [1]byte
	if err := m.bus.WriteRead(m.address, []byte{reg.Addr()}, rx[:]); err != nil {
		return 0, err
	}

	m.log("Read    0x%02x (%s): %02x", reg.Addr(), reg, rx[0])

	return rx[0], nil
}

// LEDOn sets the brightness and output mode of the channel assigned to led.
// Only the 2 bit mode field of that channel is changed in the channel
// control register. The field is replaced by mode, not OR-ed with the
// previous mode, so switching from ModePWM1 to ModeAlwaysOn yields
// ModeAlwaysOn.
func (m *Chip) LEDOn(led Color, mode Mode, brightness uint8) error {
	if !m.initialized {
		return ErrNotInitialized
	}

	if led >= NumColors {
		return fmt.Errorf("ktd2026: invalid color %d", led)
	}

	channel := m.leds[led].Channel

	if err := m.updateDeviceRegister(RegLED1CurrentOut+Register(channel), brightness); err != nil {
		return err
	}

	position := uint8(channel) * channelFieldWidth
	fieldMask := channelFieldMask << position

	if mode == ModeAlwaysOff {
		current := m.shadow.get(RegChannelControl)
		return m.updateDeviceRegister(RegChannelControl, current&^fieldMask)
	}

	return m.ModifyField(RegChannelControl, fieldMask, position, uint8(mode))
}

// SetPeriod sets the flash period. The period is multiplier*128ms + 256ms,
// except for multiplier 0 where the chip uses 128ms.
func (m *Chip) SetPeriod(multiplier uint8) error {
	return m.updateDeviceRegister(RegFlashPeriod, multiplier)
}

// SetPWMDuty sets the on time of pwm to multiplier*0.4% of the flash period.
func (m *Chip) SetPWMDuty(pwm PWMChannel, multiplier uint8) error {
	if pwm > PWM2 {
		return fmt.Errorf("ktd2026: invalid pwm channel %d", pwm)
	}

	return m.updateDeviceRegister(RegFlashOnTime1+Register(pwm), multiplier)
}

// TimeslotControl writes mode to the time slot / reset field of the
// enable register.
func (m *Chip) TimeslotControl(mode TimeSlotMode) error {
	return m.ModifyField(RegEnableReset, maskTCtrlReset, posTCtrlReset, uint8(mode))
}

// Halt switches all channels off.
func (m *Chip) Halt() error {
	return m.updateDeviceRegister(RegChannelControl, 0)
}
