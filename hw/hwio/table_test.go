package hwio_test

import (
	"testing"

	"rp2a03/hw/hwio"
)

// openbus stands in for the CPU's last-bus-value behavior on unmapped
// addresses.
type openbus struct{}

func (ob *openbus) Read8(addr uint16) uint8       { return 0xD3 }
func (ob *openbus) Peek8(addr uint16) uint8       { return 0xD4 }
func (ob *openbus) Write8(addr uint16, val uint8) {}

type testBank struct {
	// $4000
	Reg0 hwio.Reg8 `hwio:"offset=0x0,reset=0x77"`
	// $4001
	Reg1 hwio.Reg8 `hwio:"offset=0x1,rcb"`
	// $4010-$401F
	DEV hwio.Device `hwio:"offset=0x10,size=0x10,rcb,wcb"`

	devval uint8
}

func (tb *testBank) ReadREG1(val uint8) uint8        { return val + 1 }
func (tb *testBank) ReadDEV(addr uint16) uint8       { return uint8(addr) }
func (tb *testBank) WriteDEV(addr uint16, val uint8) { tb.devval = uint8(addr&0xFF) ^ val }

func newTestBus(tb testing.TB) (*hwio.Table, *testBank) {
	bank := &testBank{}
	hwio.MustInitRegs(bank)

	bus := hwio.NewTable("bus")
	bus.MapBank(0x4000, bank, 0)
	bus.Unmapped = &openbus{}
	return bus, bank
}

func TestTableDispatch(t *testing.T) {
	bus, bank := newTestBus(t)

	if got := bus.Read8(0x4000); got != 0x77 {
		t.Errorf("Read8(4000) = %02x, want 77 (reset value)", got)
	}

	bank.Reg1.Value = 0x10
	if got := bus.Read8(0x4001); got != 0x11 {
		t.Errorf("Read8(4001) = %02x, want 11 (read callback)", got)
	}

	if got := bus.Read8(0x4015); got != 0x15 {
		t.Errorf("Read8(4015) = %02x, want 15 (device callback)", got)
	}

	bus.Write8(0x4012, 0xFF)
	if bank.devval != 0x12^0xFF {
		t.Errorf("device write callback: devval = %02x", bank.devval)
	}
}

func TestTableUnmapped(t *testing.T) {
	bus, _ := newTestBus(t)

	if got := bus.Read8(0x5000); got != 0xD3 {
		t.Errorf("unmapped Read8 = %02x, want open bus value D3", got)
	}
	if got := bus.Peek8(0x5000); got != 0xD4 {
		t.Errorf("unmapped Peek8 = %02x, want open bus value D4", got)
	}

	// Writes to unmapped addresses go to the fallback too (and are
	// silently ignored there).
	bus.Write8(0x5000, 0x42)

	// Without a fallback, unmapped reads return 0.
	bus.Unmapped = nil
	if got := bus.Read8(0x5000); got != 0 {
		t.Errorf("unmapped Read8 without fallback = %02x, want 0", got)
	}
}

func TestTableUnmap(t *testing.T) {
	bus, _ := newTestBus(t)

	bus.Unmap(0x4000, 0x4000)
	if got := bus.Read8(0x4000); got != 0xD3 {
		t.Errorf("Read8 after Unmap = %02x, want open bus", got)
	}
	// The neighbor register is still mapped.
	if got := bus.Read8(0x4001); got == 0xD3 {
		t.Errorf("Unmap removed a neighboring mapping")
	}
}

func TestTableRemapPanics(t *testing.T) {
	bus, bank := newTestBus(t)

	defer func() {
		if recover() == nil {
			t.Error("remapping an address did not panic")
		}
	}()
	bus.MapReg8(0x4000, &bank.Reg0)
}

func TestReadWrite16(t *testing.T) {
	bank := &testBank{}
	hwio.MustInitRegs(bank)
	bus := hwio.NewTable("bus")
	bus.MapBank(0x4000, bank, 0)

	hwio.Write16(bus, 0x4000, 0x1234)
	if got := hwio.Read16(bus, 0x4000); got&0xFF != 0x34 {
		t.Errorf("Read16 low byte = %02x, want 34", got&0xFF)
	}
}
