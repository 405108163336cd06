package snapshot

import (
	"io"

	"github.com/go-faster/jx"
)

// Current save-state format version. Bumped when the layout changes in an
// incompatible way.
const Version = 1

// Encode writes the state as JSON to w.
func (s *APU) Encode(w io.Writer) error {
	var e jx.Encoder
	s.Version = Version
	s.encode(&e)
	_, err := w.Write(e.Bytes())
	return err
}

// Decode reads a state previously written by Encode.
func (s *APU) Decode(r io.Reader) error {
	buf, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	d := jx.DecodeBytes(buf)
	return s.decode(d)
}

// narrow-width decode helpers: jx deals in 32/64-bit numbers.

func decU8(d *jx.Decoder, dst *uint8) error {
	v, err := d.UInt32()
	*dst = uint8(v)
	return err
}

func decU16(d *jx.Decoder, dst *uint16) error {
	v, err := d.UInt32()
	*dst = uint16(v)
	return err
}

func decU32(d *jx.Decoder, dst *uint32) error {
	v, err := d.UInt32()
	*dst = v
	return err
}

func decI8(d *jx.Decoder, dst *int8) error {
	v, err := d.Int32()
	*dst = int8(v)
	return err
}

func decI16(d *jx.Decoder, dst *int16) error {
	v, err := d.Int32()
	*dst = int16(v)
	return err
}

func decI32(d *jx.Decoder, dst *int32) error {
	v, err := d.Int32()
	*dst = v
	return err
}

func decBool(d *jx.Decoder, dst *bool) error {
	v, err := d.Bool()
	*dst = v
	return err
}

func (s *APU) encode(e *jx.Encoder) {
	e.ObjStart()
	e.FieldStart("Version")
	e.Int(s.Version)
	e.FieldStart("Model")
	e.UInt32(uint32(s.Model))
	e.FieldStart("CurCycle")
	e.UInt32(s.CurCycle)
	e.FieldStart("PrevCycle")
	e.UInt32(s.PrevCycle)
	e.FieldStart("Square1")
	s.Square1.encode(e)
	e.FieldStart("Square2")
	s.Square2.encode(e)
	e.FieldStart("Triangle")
	s.Triangle.encode(e)
	e.FieldStart("Noise")
	s.Noise.encode(e)
	e.FieldStart("DMC")
	s.DMC.encode(e)
	e.FieldStart("FrameCounter")
	s.FrameCounter.encode(e)
	e.FieldStart("Mixer")
	s.Mixer.encode(e)
	e.ObjEnd()
}

func (s *APU) decode(d *jx.Decoder) error {
	return d.Obj(func(d *jx.Decoder, key string) (err error) {
		switch key {
		case "Version":
			s.Version, err = d.Int()
		case "Model":
			err = decU8(d, &s.Model)
		case "CurCycle":
			err = decU32(d, &s.CurCycle)
		case "PrevCycle":
			err = decU32(d, &s.PrevCycle)
		case "Square1":
			err = s.Square1.decode(d)
		case "Square2":
			err = s.Square2.decode(d)
		case "Triangle":
			err = s.Triangle.decode(d)
		case "Noise":
			err = s.Noise.decode(d)
		case "DMC":
			err = s.DMC.decode(d)
		case "FrameCounter":
			err = s.FrameCounter.decode(d)
		case "Mixer":
			err = s.Mixer.decode(d)
		default:
			err = d.Skip()
		}
		return err
	})
}

func (t *APUTimer) encode(e *jx.Encoder) {
	e.ObjStart()
	e.FieldStart("PreviousCycle")
	e.UInt32(t.PreviousCycle)
	e.FieldStart("Timer")
	e.UInt32(uint32(t.Timer))
	e.FieldStart("Period")
	e.UInt32(uint32(t.Period))
	e.FieldStart("LastOutput")
	e.Int32(int32(t.LastOutput))
	e.ObjEnd()
}

func (t *APUTimer) decode(d *jx.Decoder) error {
	return d.Obj(func(d *jx.Decoder, key string) (err error) {
		switch key {
		case "PreviousCycle":
			err = decU32(d, &t.PreviousCycle)
		case "Timer":
			err = decU16(d, &t.Timer)
		case "Period":
			err = decU16(d, &t.Period)
		case "LastOutput":
			err = decI8(d, &t.LastOutput)
		default:
			err = d.Skip()
		}
		return err
	})
}

func (lc *APULengthCounter) encode(e *jx.Encoder) {
	e.ObjStart()
	e.FieldStart("Enabled")
	e.Bool(lc.Enabled)
	e.FieldStart("Halt")
	e.Bool(lc.Halt)
	e.FieldStart("NewHalt")
	e.Bool(lc.NewHalt)
	e.FieldStart("Counter")
	e.UInt32(uint32(lc.Counter))
	e.FieldStart("ReloadValue")
	e.UInt32(uint32(lc.ReloadValue))
	e.FieldStart("PreviousValue")
	e.UInt32(uint32(lc.PreviousValue))
	e.ObjEnd()
}

func (lc *APULengthCounter) decode(d *jx.Decoder) error {
	return d.Obj(func(d *jx.Decoder, key string) (err error) {
		switch key {
		case "Enabled":
			err = decBool(d, &lc.Enabled)
		case "Halt":
			err = decBool(d, &lc.Halt)
		case "NewHalt":
			err = decBool(d, &lc.NewHalt)
		case "Counter":
			err = decU8(d, &lc.Counter)
		case "ReloadValue":
			err = decU8(d, &lc.ReloadValue)
		case "PreviousValue":
			err = decU8(d, &lc.PreviousValue)
		default:
			err = d.Skip()
		}
		return err
	})
}

func (env *APUEnvelope) encode(e *jx.Encoder) {
	e.ObjStart()
	e.FieldStart("ConstantVolume")
	e.Bool(env.ConstantVolume)
	e.FieldStart("Volume")
	e.UInt32(uint32(env.Volume))
	e.FieldStart("Start")
	e.Bool(env.Start)
	e.FieldStart("Divider")
	e.Int32(int32(env.Divider))
	e.FieldStart("Counter")
	e.UInt32(uint32(env.Counter))
	e.FieldStart("LengthCounter")
	env.LengthCounter.encode(e)
	e.ObjEnd()
}

func (env *APUEnvelope) decode(d *jx.Decoder) error {
	return d.Obj(func(d *jx.Decoder, key string) (err error) {
		switch key {
		case "ConstantVolume":
			err = decBool(d, &env.ConstantVolume)
		case "Volume":
			err = decU8(d, &env.Volume)
		case "Start":
			err = decBool(d, &env.Start)
		case "Divider":
			err = decI8(d, &env.Divider)
		case "Counter":
			err = decU8(d, &env.Counter)
		case "LengthCounter":
			err = env.LengthCounter.decode(d)
		default:
			err = d.Skip()
		}
		return err
	})
}

func (sq *APUSquare) encode(e *jx.Encoder) {
	e.ObjStart()
	e.FieldStart("Timer")
	sq.Timer.encode(e)
	e.FieldStart("Envelope")
	sq.Envelope.encode(e)
	e.FieldStart("Duty")
	e.UInt32(uint32(sq.Duty))
	e.FieldStart("DutyPos")
	e.UInt32(uint32(sq.DutyPos))
	e.FieldStart("RealPeriod")
	e.UInt32(uint32(sq.RealPeriod))
	e.FieldStart("SweepEnabled")
	e.Bool(sq.SweepEnabled)
	e.FieldStart("SweepPeriod")
	e.UInt32(uint32(sq.SweepPeriod))
	e.FieldStart("SweepNegate")
	e.Bool(sq.SweepNegate)
	e.FieldStart("SweepShift")
	e.UInt32(uint32(sq.SweepShift))
	e.FieldStart("ReloadSweep")
	e.Bool(sq.ReloadSweep)
	e.FieldStart("SweepDivider")
	e.UInt32(uint32(sq.SweepDivider))
	e.FieldStart("SweepTargetPeriod")
	e.UInt32(sq.SweepTargetPeriod)
	e.ObjEnd()
}

func (sq *APUSquare) decode(d *jx.Decoder) error {
	return d.Obj(func(d *jx.Decoder, key string) (err error) {
		switch key {
		case "Timer":
			err = sq.Timer.decode(d)
		case "Envelope":
			err = sq.Envelope.decode(d)
		case "Duty":
			err = decU8(d, &sq.Duty)
		case "DutyPos":
			err = decU8(d, &sq.DutyPos)
		case "RealPeriod":
			err = decU16(d, &sq.RealPeriod)
		case "SweepEnabled":
			err = decBool(d, &sq.SweepEnabled)
		case "SweepPeriod":
			err = decU8(d, &sq.SweepPeriod)
		case "SweepNegate":
			err = decBool(d, &sq.SweepNegate)
		case "SweepShift":
			err = decU8(d, &sq.SweepShift)
		case "ReloadSweep":
			err = decBool(d, &sq.ReloadSweep)
		case "SweepDivider":
			err = decU8(d, &sq.SweepDivider)
		case "SweepTargetPeriod":
			err = decU32(d, &sq.SweepTargetPeriod)
		default:
			err = d.Skip()
		}
		return err
	})
}

func (tr *APUTriangle) encode(e *jx.Encoder) {
	e.ObjStart()
	e.FieldStart("Timer")
	tr.Timer.encode(e)
	e.FieldStart("LengthCounter")
	tr.LengthCounter.encode(e)
	e.FieldStart("LinearCounter")
	e.UInt32(uint32(tr.LinearCounter))
	e.FieldStart("LinearCounterReload")
	e.UInt32(uint32(tr.LinearCounterReload))
	e.FieldStart("LinearReload")
	e.Bool(tr.LinearReload)
	e.FieldStart("LinearCtrl")
	e.Bool(tr.LinearCtrl)
	e.FieldStart("Pos")
	e.UInt32(uint32(tr.Pos))
	e.ObjEnd()
}

func (tr *APUTriangle) decode(d *jx.Decoder) error {
	return d.Obj(func(d *jx.Decoder, key string) (err error) {
		switch key {
		case "Timer":
			err = tr.Timer.decode(d)
		case "LengthCounter":
			err = tr.LengthCounter.decode(d)
		case "LinearCounter":
			err = decU8(d, &tr.LinearCounter)
		case "LinearCounterReload":
			err = decU8(d, &tr.LinearCounterReload)
		case "LinearReload":
			err = decBool(d, &tr.LinearReload)
		case "LinearCtrl":
			err = decBool(d, &tr.LinearCtrl)
		case "Pos":
			err = decU8(d, &tr.Pos)
		default:
			err = d.Skip()
		}
		return err
	})
}

func (n *APUNoise) encode(e *jx.Encoder) {
	e.ObjStart()
	e.FieldStart("Timer")
	n.Timer.encode(e)
	e.FieldStart("Envelope")
	n.Envelope.encode(e)
	e.FieldStart("ShiftReg")
	e.UInt32(uint32(n.ShiftReg))
	e.FieldStart("Mode")
	e.Bool(n.Mode)
	e.FieldStart("PeriodIndex")
	e.UInt32(uint32(n.PeriodIndex))
	e.ObjEnd()
}

func (n *APUNoise) decode(d *jx.Decoder) error {
	return d.Obj(func(d *jx.Decoder, key string) (err error) {
		switch key {
		case "Timer":
			err = n.Timer.decode(d)
		case "Envelope":
			err = n.Envelope.decode(d)
		case "ShiftReg":
			err = decU16(d, &n.ShiftReg)
		case "Mode":
			err = decBool(d, &n.Mode)
		case "PeriodIndex":
			err = decU8(d, &n.PeriodIndex)
		default:
			err = d.Skip()
		}
		return err
	})
}

func (dc *APUDMC) encode(e *jx.Encoder) {
	e.ObjStart()
	e.FieldStart("Timer")
	dc.Timer.encode(e)
	e.FieldStart("SampleAddr")
	e.UInt32(uint32(dc.SampleAddr))
	e.FieldStart("SampleLen")
	e.UInt32(uint32(dc.SampleLen))
	e.FieldStart("OutputLevel")
	e.UInt32(uint32(dc.OutputLevel))
	e.FieldStart("RateIndex")
	e.UInt32(uint32(dc.RateIndex))
	e.FieldStart("IRQEnabled")
	e.Bool(dc.IRQEnabled)
	e.FieldStart("Loop")
	e.Bool(dc.Loop)
	e.FieldStart("CurrentAddr")
	e.UInt32(uint32(dc.CurrentAddr))
	e.FieldStart("Remaining")
	e.UInt32(uint32(dc.Remaining))
	e.FieldStart("ReadBuf")
	e.UInt32(uint32(dc.ReadBuf))
	e.FieldStart("BufEmpty")
	e.Bool(dc.BufEmpty)
	e.FieldStart("ShiftReg")
	e.UInt32(uint32(dc.ShiftReg))
	e.FieldStart("BitsLeft")
	e.UInt32(uint32(dc.BitsLeft))
	e.FieldStart("Silence")
	e.Bool(dc.Silence)
	e.FieldStart("NeedToRun")
	e.Bool(dc.NeedToRun)
	e.FieldStart("StartDelay")
	e.UInt32(uint32(dc.StartDelay))
	e.FieldStart("DisableDelay")
	e.UInt32(uint32(dc.DisableDelay))
	e.ObjEnd()
}

func (dc *APUDMC) decode(d *jx.Decoder) error {
	return d.Obj(func(d *jx.Decoder, key string) (err error) {
		switch key {
		case "Timer":
			err = dc.Timer.decode(d)
		case "SampleAddr":
			err = decU16(d, &dc.SampleAddr)
		case "SampleLen":
			err = decU16(d, &dc.SampleLen)
		case "OutputLevel":
			err = decU8(d, &dc.OutputLevel)
		case "RateIndex":
			err = decU8(d, &dc.RateIndex)
		case "IRQEnabled":
			err = decBool(d, &dc.IRQEnabled)
		case "Loop":
			err = decBool(d, &dc.Loop)
		case "CurrentAddr":
			err = decU16(d, &dc.CurrentAddr)
		case "Remaining":
			err = decU16(d, &dc.Remaining)
		case "ReadBuf":
			err = decU8(d, &dc.ReadBuf)
		case "BufEmpty":
			err = decBool(d, &dc.BufEmpty)
		case "ShiftReg":
			err = decU8(d, &dc.ShiftReg)
		case "BitsLeft":
			err = decU8(d, &dc.BitsLeft)
		case "Silence":
			err = decBool(d, &dc.Silence)
		case "NeedToRun":
			err = decBool(d, &dc.NeedToRun)
		case "StartDelay":
			err = decU8(d, &dc.StartDelay)
		case "DisableDelay":
			err = decU8(d, &dc.DisableDelay)
		default:
			err = d.Skip()
		}
		return err
	})
}

func (fc *APUFrameCounter) encode(e *jx.Encoder) {
	e.ObjStart()
	e.FieldStart("PrevCycle")
	e.Int32(fc.PrevCycle)
	e.FieldStart("CurStep")
	e.UInt32(fc.CurStep)
	e.FieldStart("StepMode")
	e.UInt32(fc.StepMode)
	e.FieldStart("InhibitIRQ")
	e.Bool(fc.InhibitIRQ)
	e.FieldStart("BlockTick")
	e.UInt32(uint32(fc.BlockTick))
	e.FieldStart("NewVal")
	e.Int32(int32(fc.NewVal))
	e.FieldStart("WriteDelayCounter")
	e.Int32(int32(fc.WriteDelayCounter))
	e.ObjEnd()
}

func (fc *APUFrameCounter) decode(d *jx.Decoder) error {
	return d.Obj(func(d *jx.Decoder, key string) (err error) {
		switch key {
		case "PrevCycle":
			err = decI32(d, &fc.PrevCycle)
		case "CurStep":
			err = decU32(d, &fc.CurStep)
		case "StepMode":
			err = decU32(d, &fc.StepMode)
		case "InhibitIRQ":
			err = decBool(d, &fc.InhibitIRQ)
		case "BlockTick":
			err = decU8(d, &fc.BlockTick)
		case "NewVal":
			err = decI16(d, &fc.NewVal)
		case "WriteDelayCounter":
			err = decI8(d, &fc.WriteDelayCounter)
		default:
			err = d.Skip()
		}
		return err
	})
}

func (m *APUMixer) encode(e *jx.Encoder) {
	e.ObjStart()
	e.FieldStart("ClockRate")
	e.UInt32(m.ClockRate)
	e.FieldStart("SampleRate")
	e.UInt32(m.SampleRate)
	e.FieldStart("PreviousOutputLeft")
	e.Int32(int32(m.PreviousOutputLeft))
	e.FieldStart("PreviousOutputRight")
	e.Int32(int32(m.PreviousOutputRight))
	e.FieldStart("CurrentOutput")
	e.ArrStart()
	for _, out := range m.CurrentOutput {
		e.Int32(int32(out))
	}
	e.ArrEnd()
	e.ObjEnd()
}

func (m *APUMixer) decode(d *jx.Decoder) error {
	return d.Obj(func(d *jx.Decoder, key string) (err error) {
		switch key {
		case "ClockRate":
			err = decU32(d, &m.ClockRate)
		case "SampleRate":
			err = decU32(d, &m.SampleRate)
		case "PreviousOutputLeft":
			err = decI16(d, &m.PreviousOutputLeft)
		case "PreviousOutputRight":
			err = decI16(d, &m.PreviousOutputRight)
		case "CurrentOutput":
			i := 0
			err = d.Arr(func(d *jx.Decoder) error {
				v, err := d.Int32()
				if err != nil {
					return err
				}
				if i < len(m.CurrentOutput) {
					m.CurrentOutput[i] = int16(v)
					i++
				}
				return nil
			})
		default:
			err = d.Skip()
		}
		return err
	})
}
