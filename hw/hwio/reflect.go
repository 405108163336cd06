package hwio

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

type bankReg struct {
	offset uint16
	regPtr any
}

type regTag struct {
	offset    uint16
	hasOffset bool
	bank      int
	size      int
	reset     uint8
	rwmask    uint8
	hasRwmask bool
	readonly  bool
	writeonly bool
	rcb       string
	wcb       string
	pcb       string
	hasRcb    bool
	hasWcb    bool
	hasPcb    bool
}

func parseTag(tag string) (regTag, error) {
	rt := regTag{}
	for _, opt := range strings.Split(tag, ",") {
		opt = strings.TrimSpace(opt)
		if opt == "" {
			continue
		}
		key, val, hasval := strings.Cut(opt, "=")
		switch key {
		case "offset":
			n, err := strconv.ParseUint(val, 0, 16)
			if err != nil {
				return rt, fmt.Errorf("invalid offset %q: %v", val, err)
			}
			rt.offset = uint16(n)
			rt.hasOffset = true
		case "bank":
			n, err := strconv.Atoi(val)
			if err != nil {
				return rt, fmt.Errorf("invalid bank %q: %v", val, err)
			}
			rt.bank = n
		case "size":
			n, err := strconv.ParseUint(val, 0, 16)
			if err != nil {
				return rt, fmt.Errorf("invalid size %q: %v", val, err)
			}
			rt.size = int(n)
		case "reset":
			n, err := strconv.ParseUint(val, 0, 8)
			if err != nil {
				return rt, fmt.Errorf("invalid reset %q: %v", val, err)
			}
			rt.reset = uint8(n)
		case "rwmask":
			n, err := strconv.ParseUint(val, 0, 8)
			if err != nil {
				return rt, fmt.Errorf("invalid rwmask %q: %v", val, err)
			}
			rt.rwmask = uint8(n)
			rt.hasRwmask = true
		case "readonly":
			rt.readonly = true
		case "writeonly":
			rt.writeonly = true
		case "rcb":
			rt.hasRcb = true
			if hasval {
				rt.rcb = val
			}
		case "wcb":
			rt.hasWcb = true
			if hasval {
				rt.wcb = val
			}
		case "pcb":
			rt.hasPcb = true
			if hasval {
				rt.pcb = val
			}
		default:
			return rt, fmt.Errorf("unknown hwio tag option %q", opt)
		}
	}
	return rt, nil
}

func cbName(prefix, explicit, field string) string {
	if explicit != "" {
		return explicit
	}
	return prefix + strings.ToUpper(field)
}

func lookupMethod[T any](bank reflect.Value, name string) (T, error) {
	var zero T
	m := bank.MethodByName(name)
	if !m.IsValid() {
		return zero, fmt.Errorf("method %s not found on %s", name, bank.Type())
	}
	fn, ok := m.Interface().(T)
	if !ok {
		return zero, fmt.Errorf("method %s on %s has type %T, want %v",
			name, bank.Type(), m.Interface(), reflect.TypeOf(zero))
	}
	return fn, nil
}

// InitRegs initializes all the hwio-tagged Reg8 and Device fields of the
// given bank structure (which must be passed by pointer): names, reset
// values, read/write masks and flags, and the rcb/wcb/pcb callbacks, looked
// up as methods Read<FIELD>, Write<FIELD> and Peek<FIELD> (uppercased field
// name), unless the tag names the method explicitly (e.g. pcb=PeekFoo).
func InitRegs(bank any) error {
	v := reflect.ValueOf(bank)
	if v.Kind() != reflect.Ptr || v.Elem().Kind() != reflect.Struct {
		return fmt.Errorf("hwio: InitRegs wants a pointer to struct, got %T", bank)
	}

	elem := v.Elem()
	typ := elem.Type()
	for i := range typ.NumField() {
		field := typ.Field(i)
		tag, ok := field.Tag.Lookup("hwio")
		if !ok {
			continue
		}
		rt, err := parseTag(tag)
		if err != nil {
			return fmt.Errorf("hwio: field %s.%s: %v", typ.Name(), field.Name, err)
		}

		switch ptr := elem.Field(i).Addr().Interface().(type) {
		case *Reg8:
			ptr.Name = field.Name
			ptr.Value = rt.reset
			if rt.hasRwmask {
				ptr.RoMask = ^rt.rwmask
			}
			if rt.readonly {
				ptr.Flags |= ReadOnlyFlag
			}
			if rt.writeonly {
				ptr.Flags |= WriteOnlyFlag
			}
			if rt.hasRcb {
				ptr.ReadCb, err = lookupMethod[func(uint8) uint8](v, cbName("Read", rt.rcb, field.Name))
			}
			if err == nil && rt.hasWcb {
				ptr.WriteCb, err = lookupMethod[func(uint8, uint8)](v, cbName("Write", rt.wcb, field.Name))
			}
			if err == nil && rt.hasPcb {
				ptr.PeekCb, err = lookupMethod[func(uint8) uint8](v, cbName("Peek", rt.pcb, field.Name))
			}
		case *Device:
			ptr.Name = field.Name
			if rt.size != 0 {
				ptr.Size = rt.size
			}
			if rt.readonly {
				ptr.Flags |= ReadOnlyFlag
			}
			if rt.writeonly {
				ptr.Flags |= WriteOnlyFlag
			}
			if rt.hasRcb {
				ptr.ReadCb, err = lookupMethod[func(uint16) uint8](v, cbName("Read", rt.rcb, field.Name))
			}
			if err == nil && rt.hasWcb {
				ptr.WriteCb, err = lookupMethod[func(uint16, uint8)](v, cbName("Write", rt.wcb, field.Name))
			}
			if err == nil && rt.hasPcb {
				ptr.PeekCb, err = lookupMethod[func(uint16) uint8](v, cbName("Peek", rt.pcb, field.Name))
			}
		default:
			return fmt.Errorf("hwio: field %s.%s: unsupported type %T", typ.Name(), field.Name, ptr)
		}
		if err != nil {
			return fmt.Errorf("hwio: field %s.%s: %v", typ.Name(), field.Name, err)
		}
	}
	return nil
}

// MustInitRegs is like InitRegs but panics on error. Register banks are
// wired at construction time, a failure there is a programming error.
func MustInitRegs(bank any) {
	if err := InitRegs(bank); err != nil {
		panic(err)
	}
}

func bankGetRegs(bank any, bankNum int) ([]bankReg, error) {
	v := reflect.ValueOf(bank)
	if v.Kind() != reflect.Ptr || v.Elem().Kind() != reflect.Struct {
		return nil, fmt.Errorf("hwio: bankGetRegs wants a pointer to struct, got %T", bank)
	}

	var regs []bankReg
	elem := v.Elem()
	typ := elem.Type()
	for i := range typ.NumField() {
		field := typ.Field(i)
		tag, ok := field.Tag.Lookup("hwio")
		if !ok {
			continue
		}
		rt, err := parseTag(tag)
		if err != nil {
			return nil, fmt.Errorf("hwio: field %s.%s: %v", typ.Name(), field.Name, err)
		}
		if !rt.hasOffset || rt.bank != bankNum {
			continue
		}
		regs = append(regs, bankReg{
			offset: rt.offset,
			regPtr: elem.Field(i).Addr().Interface(),
		})
	}
	return regs, nil
}
