package ktd2026

// Bus is the I2C transport used by the driver. Both calls block until the
// transaction has finished.
type Bus interface {
	// Write sends w to the device at the 7-bit address addr.
	Write(addr uint16, w []byte) error

	// WriteRead sends w and then reads len(r) bytes into r, in one
	// transaction with a repeated start.
	WriteRead(addr uint16, w, r []byte) error
}
