package hwio

import (
	"fmt"
)

type BankIO8 interface {
	Read8(addr uint16) uint8
	// Peek8 is a side-effect-free read (debugging/tracing).
	Peek8(addr uint16) uint8
	Write8(addr uint16, val uint8)
}

func Write16(b BankIO8, addr uint16, val uint16) {
	lo := uint8(val & 0xff)
	hi := uint8(val >> 8)
	b.Write8(addr, lo)
	b.Write8(addr+1, hi)
}

func Read16(b BankIO8, addr uint16) uint16 {
	lo := b.Read8(addr)
	hi := b.Read8(addr + 1)
	return uint16(hi)<<8 | uint16(lo)
}

const pageShift = 8 // 256 pages of 256 bytes

type page [1 << pageShift]BankIO8

// Table maps a 16-bit address space to BankIO8 handlers. Pages are allocated
// on demand so a sparse bus (the APU occupies $4000-$401A) stays small.
type Table struct {
	Name string

	// Unmapped, when non-nil, handles accesses to unmapped addresses.
	Unmapped BankIO8

	pages [1 << (16 - pageShift)]*page
}

func NewTable(name string) *Table {
	t := new(Table)
	t.Name = name
	return t
}

func (t *Table) Reset() {
	clear(t.pages[:])
}

// MapBank maps a register bank (that is, a structure containing multiple
// hwio.Reg8/hwio.Device fields). For this function to work, registers must
// have a struct tag "hwio", containing the following fields:
//
//	offset=0x12     Byte-offset within the register bank at which this
//	                register is mapped. There is no default value: if this
//	                option is missing, the register is assumed not to be
//	                part of the bank, and is ignored by this call.
//
//	bank=NN         Ordinal bank number (if not specified, default to zero).
//	                This option allows for a structure to expose multiple
//	                banks, as regs can be grouped by bank by specifying the
//	                bank number.
func (t *Table) MapBank(addr uint16, bank any, bankNum int) {
	regs, err := bankGetRegs(bank, bankNum)
	if err != nil {
		panic(err)
	}

	for _, reg := range regs {
		switch r := reg.regPtr.(type) {
		case *Reg8:
			t.MapReg8(addr+reg.offset, r)
		case *Device:
			t.MapDevice(addr+reg.offset, r)
		default:
			panic(fmt.Errorf("invalid reg type: %T", r))
		}
	}
}

func (t *Table) UnmapBank(addr uint16, bank any, bankNum int) {
	regs, err := bankGetRegs(bank, bankNum)
	if err != nil {
		panic(err)
	}

	for _, reg := range regs {
		switch r := reg.regPtr.(type) {
		case *Reg8:
			t.Unmap(addr+reg.offset, addr+reg.offset)
		case *Device:
			t.Unmap(addr+reg.offset, addr+reg.offset+uint16(r.Size)-1)
		default:
			panic(fmt.Errorf("invalid reg type: %T", r))
		}
	}
}

func (t *Table) MapReg8(addr uint16, io *Reg8) {
	t.mapBus8(addr, 1, io)
}

func (t *Table) MapDevice(addr uint16, io *Device) {
	t.mapBus8(addr, uint16(io.Size), io)
}

func (t *Table) mapBus8(addr, size uint16, io BankIO8) {
	for i := range size {
		a := addr + i
		pg := t.pages[a>>pageShift]
		if pg == nil {
			pg = new(page)
			t.pages[a>>pageShift] = pg
		}
		if pg[a&(1<<pageShift-1)] != nil {
			panic(fmt.Errorf("hwio: %s: remapping address %04x", t.Name, a))
		}
		pg[a&(1<<pageShift-1)] = io
	}
}

func (t *Table) Unmap(begin, end uint16) {
	for a := uint32(begin); a <= uint32(end); a++ {
		pg := t.pages[a>>pageShift]
		if pg != nil {
			pg[a&(1<<pageShift-1)] = nil
		}
	}
}

func (t *Table) search(addr uint16) BankIO8 {
	pg := t.pages[addr>>pageShift]
	if pg == nil {
		return nil
	}
	return pg[addr&(1<<pageShift-1)]
}

// Read8 searches in the table for the device mapped at the given address and
// forwards the read to it. Accesses to unmapped addresses go to Unmapped.
func (t *Table) Read8(addr uint16) uint8 {
	io := t.search(addr)
	if io == nil {
		if t.Unmapped != nil {
			return t.Unmapped.Read8(addr)
		}
		return 0
	}
	return io.Read8(addr)
}

func (t *Table) Peek8(addr uint16) uint8 {
	io := t.search(addr)
	if io == nil {
		if t.Unmapped != nil {
			return t.Unmapped.Peek8(addr)
		}
		return 0
	}
	return io.Peek8(addr)
}

func (t *Table) Write8(addr uint16, val uint8) {
	io := t.search(addr)
	if io == nil {
		if t.Unmapped != nil {
			t.Unmapped.Write8(addr, val)
		}
		return
	}
	io.Write8(addr, val)
}
