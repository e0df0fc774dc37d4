package ktd2026

// shadowRegisters holds the last value written (or about to be written) to
// every register. Reads from the chip are not reliable, so this is what all
// read-modify-write operations start from.
type shadowRegisters [NumRegisters]byte

func (s *shadowRegisters) get(reg Register) byte {
	return s[reg]
}

func (s *shadowRegisters) set(reg Register, value byte) {
	s[reg] = value
}

func (s *shadowRegisters) reset() {
	*s = shadowRegisters{}
}
