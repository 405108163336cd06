// Command apuplay drives the APU core standalone: it feeds a register-write
// script to the channels at emulated CPU speed and plays the resulting PCM
// through SDL. Without a script it plays a built-in demo.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"golang.org/x/sync/errgroup"

	"rp2a03/emu/log"
	"rp2a03/hw"
	"rp2a03/hw/apu"
	"rp2a03/hw/hwdefs"
	"rp2a03/hw/hwio"
)

type CLI struct {
	Play Play `cmd:"" default:"withargs" help:"Play a register script. (default command)"`

	Log []string `help:"Enable debug logging for specified modules." placeholder:"mod0,mod1,..."`
}

type Play struct {
	ScriptPath string `arg:"" optional:"" name:"/path/to/script" type:"existingfile" help:"Register script to play (built-in demo when omitted)."`

	Duration time.Duration `help:"How long to run." default:"4s"`
	Model    string        `help:"Console model, ntsc or pal (overrides config)."`
	Sample   string        `name:"sample" help:"Raw DPCM sample memory, mapped at $8000." type:"existingfile"`
}

func main() {
	var cli CLI
	kong.Parse(&cli,
		kong.Name("apuplay"),
		kong.Description("Standalone RP2A03 APU player."),
		kong.UsageOnError(),
	)

	for _, name := range cli.Log {
		mod, ok := log.ModuleByName(name)
		if !ok {
			fmt.Fprintf(os.Stderr, "unknown log module %q\n", name)
			os.Exit(1)
		}
		log.EnableDebugModules(mod.Mask())
	}

	if err := cli.Play.run(); err != nil {
		fmt.Fprintln(os.Stderr, "apuplay:", err)
		os.Exit(1)
	}
}

func (p *Play) run() error {
	cfg := loadConfigOrDefault()
	if p.Model != "" {
		cfg.Audio.Model = p.Model
	}

	var model hwdefs.Model
	switch strings.ToLower(cfg.Audio.Model) {
	case "", "ntsc":
		model = hwdefs.NTSC
	case "pal":
		model = hwdefs.PAL
	default:
		return fmt.Errorf("unknown console model %q", cfg.Audio.Model)
	}

	writes, err := p.loadScript()
	if err != nil {
		return err
	}

	dev, err := hw.OpenAudioDevice(cfg.Audio.SampleRate)
	if err != nil {
		return err
	}
	defer dev.Close()

	drv := &driver{}
	if p.Sample != "" {
		drv.sampleROM, err = os.ReadFile(p.Sample)
		if err != nil {
			return err
		}
	}

	mixer := apu.NewMixer(dev)
	mixer.SetSampleRate(cfg.Audio.SampleRate)
	cfg.Audio.applyMix(mixer)

	a := apu.New(drv, mixer)
	drv.apu = a
	a.SetModel(model, true)
	a.Reset(hwdefs.HardReset)

	bus := hwio.NewTable("apu")
	a.MapBus(bus)

	dev.Resume()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return p.playback(ctx, drv, dev, bus, writes, model, cfg.Audio.SampleRate)
	})
	return g.Wait()
}

func (p *Play) loadScript() ([]scriptWrite, error) {
	if p.ScriptPath == "" {
		return parseScript(strings.NewReader(demoScript))
	}
	f, err := os.Open(p.ScriptPath)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return parseScript(f)
}

// playback steps the APU at the emulated clock rate, applying script writes
// at their cycle. Pacing piggybacks on the audio queue: emulation runs
// ahead until ~100ms of audio is buffered, then waits for the device to
// drain.
func (p *Play) playback(ctx context.Context, drv *driver, dev *hw.AudioDevice, bus *hwio.Table, writes []scriptWrite, model hwdefs.Model, sampleRate uint32) error {
	const chunk = 1000 // cycles between script/pacing checks

	total := uint64(p.Duration.Seconds() * float64(model.ClockRate()))
	ahead := int(sampleRate / 10) // keep ~100ms buffered

	var cycles uint64
	for cycles < total {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		for range chunk {
			for len(writes) > 0 && writes[0].cycle <= cycles {
				bus.Write8(writes[0].addr, writes[0].val)
				writes = writes[1:]
			}
			drv.step()
			cycles++
		}

		for dev.QueuedFrames() > ahead {
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(time.Millisecond):
			}
		}
	}

	log.ModEmu.InfoZ("playback done").
		Uint32("cycles", uint32(cycles)).
		End()
	return nil
}
