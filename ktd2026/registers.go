package ktd2026

import (
	"fmt"
	"strings"
)

// AddressDefault is the 7-bit I2C address of the KTD2026.
const AddressDefault = 0x30

// Register is the address of one byte wide register on the chip.
type Register uint8

const (
	RegEnableReset    Register = 0x00
	RegFlashPeriod    Register = 0x01
	RegFlashOnTime1   Register = 0x02
	RegFlashOnTime2   Register = 0x03
	RegChannelControl Register = 0x04
	RegRampRate       Register = 0x05
	RegLED1CurrentOut Register = 0x06
	RegLED2CurrentOut Register = 0x07
	RegLED3CurrentOut Register = 0x08
	RegLED4CurrentOut Register = 0x09

	NumRegisters = 10
)

var registerNames = [NumRegisters]string{
	"EnableReset",
	"FlashPeriod",
	"FlashOnTime1",
	"FlashOnTime2",
	"ChannelControl",
	"RampRate",
	"LED1CurrentOut",
	"LED2CurrentOut",
	"LED3CurrentOut",
	"LED4CurrentOut",
}

func (r Register) Addr() uint8 {
	return uint8(r)
}

func (r Register) String() string {
	if int(r) < len(registerNames) {
		return registerNames[r]
	}
	return fmt.Sprintf("Register(0x%02x)", uint8(r))
}

// RegisterFromAddr returns the register at addr. The second return value is
// false if the chip has no register at that address.
func RegisterFromAddr(addr uint8) (Register, bool) {
	if addr >= NumRegisters {
		return 0, false
	}
	return Register(addr), true
}

// Enable/Reset register, bits [2:0].
const (
	maskTCtrlReset uint8 = 0x07
	posTCtrlReset  uint8 = 0
)

// Channel control register: one 2 bit field per channel, bits [2c+1:2c].
const (
	channelFieldMask  uint8 = 0x03
	channelFieldWidth uint8 = 2
)

// TimeSlotMode is the value of the time slot / reset field of RegEnableReset.
type TimeSlotMode uint8

const (
	Tslot1Ctrl           TimeSlotMode = 0x00
	Tslot2Ctrl           TimeSlotMode = 0x01
	Tslot3Ctrl           TimeSlotMode = 0x02
	Tslot4Ctrl           TimeSlotMode = 0x03
	DoNothing            TimeSlotMode = 0x04
	ResetRegistersOnly   TimeSlotMode = 0x05
	ResetMainDigitalOnly TimeSlotMode = 0x06
	ResetCompleteChip    TimeSlotMode = 0x07
)

func (t TimeSlotMode) String() string {
	switch t {
	case Tslot1Ctrl, Tslot2Ctrl, Tslot3Ctrl, Tslot4Ctrl:
		return fmt.Sprintf("Tslot%dCtrl", uint8(t)+1)
	case DoNothing:
		return "DoNothing"
	case ResetRegistersOnly:
		return "ResetRegistersOnly"
	case ResetMainDigitalOnly:
		return "ResetMainDigitalOnly"
	case ResetCompleteChip:
		return "ResetCompleteChip"
	}
	return fmt.Sprintf("TimeSlotMode(%d)", uint8(t))
}

// Mode is the 2 bit output mode of one channel.
type Mode uint8

const (
	ModeAlwaysOff Mode = 0x00
	ModeAlwaysOn  Mode = 0x01
	ModePWM1      Mode = 0x02
	ModePWM2      Mode = 0x03
)

var modeNames = [...]string{"off", "on", "pwm1", "pwm2"}

func (m Mode) String() string {
	if int(m) < len(modeNames) {
		return modeNames[m]
	}
	return fmt.Sprintf("Mode(%d)", uint8(m))
}

// ParseMode accepts the names returned by Mode.String.
func ParseMode(s string) (Mode, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, m := range modeNames {
		if m == s {
			return Mode(i), nil
		}
	}
	return 0, fmt.Errorf("unknown mode '%s'", s)
}

// Channel is one of the four current outputs.
type Channel uint8

const (
	Channel1 Channel = iota
	Channel2
	Channel3
	Channel4

	NumChannels = 4
)

// PWMChannel selects one of the two flash on-time (PWM duty) registers.
type PWMChannel uint8

const (
	PWM1 PWMChannel = iota
	PWM2
)

// Color is a logical LED color, mapped to a channel by Chip.Init.
type Color uint8

const (
	Red Color = iota
	Green
	Blue

	NumColors = 3
)

var colorNames = [NumColors]string{"red", "green", "blue"}

func (c Color) String() string {
	if int(c) < len(colorNames) {
		return colorNames[c]
	}
	return fmt.Sprintf("Color(%d)", uint8(c))
}

func ParseColor(s string) (Color, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, m := range colorNames {
		if m == s {
			return Color(i), nil
		}
	}
	return 0, fmt.Errorf("unknown color '%s'", s)
}
