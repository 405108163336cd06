package apu

import "rp2a03/hw/snapshot"

// envelope produces the 4-bit volume of the square and noise channels:
// either a constant taken from the control register, or a decay from 15 to
// 0 stepped by its divider on quarter frames. The channel's length-counter
// halt bit doubles as the envelope loop flag.
type envelope struct {
	constant bool
	param    uint8 // constant volume, and the divider period minus one
	decay    uint8
	divider  uint8

	restartQueued bool

	length lengthCounter
}

func (env *envelope) writeControl(regval uint8) {
	env.length.writeHalt(regval&0x20 != 0)
	env.constant = regval&0x10 != 0
	env.param = regval & 0x0F
}

// requestRestart arms the envelope; the next quarter frame resets the
// decay instead of stepping it.
func (env *envelope) requestRestart() {
	env.restartQueued = true
}

func (env *envelope) level() uint8 {
	switch {
	case !env.length.active():
		return 0
	case env.constant:
		return env.param
	default:
		return env.decay
	}
}

// clock is the quarter-frame tick.
func (env *envelope) clock() {
	if env.restartQueued {
		env.restartQueued = false
		env.decay = 15
		env.divider = env.param
		return
	}

	if env.divider > 0 {
		env.divider--
		return
	}
	env.divider = env.param

	if env.decay > 0 {
		env.decay--
	} else if env.length.halted {
		// Looping envelope: wrap the decay around.
		env.decay = 15
	}
}

func (env *envelope) reset(soft bool) {
	env.length.reset(soft)
	env.constant = false
	env.param = 0
	env.decay = 0
	env.divider = 0
	env.restartQueued = false
}

func (env *envelope) saveState(state *snapshot.APUEnvelope) {
	state.ConstantVolume = env.constant
	state.Volume = env.param
	state.Start = env.restartQueued
	state.Divider = int8(env.divider)
	state.Counter = env.decay
	env.length.saveState(&state.LengthCounter)
}

func (env *envelope) setState(state *snapshot.APUEnvelope) {
	env.constant = state.ConstantVolume
	env.param = state.Volume
	env.restartQueued = state.Start
	env.divider = uint8(state.Divider)
	env.decay = state.Counter
	env.length.setState(&state.LengthCounter)
}
