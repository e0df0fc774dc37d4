// Package simbus implements an in-memory I2C bus with simple register based
// devices. Every device has 256 byte wide registers; a write sends a register
// address followed by data, which is stored with auto increment. All
// transactions are recorded so tests can check what went over the bus.
package simbus

import (
	"errors"
	"fmt"
	"sync"
)

var ErrNACK = errors.New("simbus: no ACK from device")

type Transaction struct {
	Addr  uint16
	Write []byte
	Read  []byte
}

func (t Transaction) String() string {
	if t.Read != nil {
		return fmt.Sprintf("0x%02x W%x R%x", t.Addr, t.Write, t.Read)
	}
	return fmt.Sprintf("0x%02x W%x", t.Addr, t.Write)
}

// NoiseFunc returns the value the bus reports when reg holding value is read.
type NoiseFunc func(reg uint8, value byte) byte

type Bus struct {
	mu sync.Mutex

	devices      map[uint16]*[256]byte
	transactions []Transaction

	failNext error
	noise    NoiseFunc
}

// New creates a bus with a device at each of addrs.
func New(addrs ...uint16) *Bus {
	b := &Bus{
		devices: make(map[uint16]*[256]byte),
	}

	for _, m := range addrs {
		b.devices[m] = &[256]byte{}
	}

	return b
}

// FailNext makes the next transaction fail with err without reaching a device.
func (b *Bus) FailNext(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failNext = err
}

// SetReadNoise installs f to corrupt register reads. A nil f disables it.
func (b *Bus) SetReadNoise(f NoiseFunc) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.noise = f
}

func (b *Bus) begin(addr uint16) (*[256]byte, error) {
	if err := b.failNext; err != nil {
		b.failNext = nil
		return nil, err
	}

	regs, ok := b.devices[addr]
	if !ok {
		return nil, ErrNACK
	}

	return regs, nil
}

func (b *Bus) Write(addr uint16, w []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.transactions = append(b.transactions, Transaction{
		Addr:  addr,
		Write: append([]byte{}, w...),
	})

	regs, err := b.begin(addr)
	if err != nil {
		return err
	}

	if len(w) == 0 {
		return nil
	}

	reg := w[0]
	for _, m := range w[1:] {
		regs[reg] = m
		reg++
	}

	return nil
}

func (b *Bus) WriteRead(addr uint16, w, r []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	regs, err := b.begin(addr)
	if err != nil {
		b.transactions = append(b.transactions, Transaction{
			Addr:  addr,
			Write: append([]byte{}, w...),
		})
		return err
	}

	if len(w) == 0 {
		return errors.New("simbus: read without register address")
	}

	reg := w[0]
	for _, m := range w[1:] {
		regs[reg] = m
		reg++
	}

	for i := range r {
		value := regs[reg]
		if b.noise != nil {
			value = b.noise(reg, value)
		}
		r[i] = value
		reg++
	}

	b.transactions = append(b.transactions, Transaction{
		Addr:  addr,
		Write: append([]byte{}, w...),
		Read:  append([]byte{}, r...),
	})

	return nil
}

// Register returns what the device at addr really holds in reg.
func (b *Bus) Register(addr uint16, reg uint8) byte {
	b.mu.Lock()
	defer b.mu.Unlock()

	regs, ok := b.devices[addr]
	if !ok {
		return 0
	}
	return regs[reg]
}

// Transactions returns a copy of all transactions since the last Clear.
func (b *Bus) Transactions() []Transaction {
	b.mu.Lock()
	defer b.mu.Unlock()

	return append([]Transaction{}, b.transactions...)
}

// Clear forgets all recorded transactions.
func (b *Bus) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.transactions = nil
}
