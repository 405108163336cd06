package main

import (
	"os"
	"path/filepath"
	"sync"

	"github.com/BurntSushi/toml"
	"github.com/kirsle/configdir"

	"rp2a03/emu/log"
	"rp2a03/hw/apu"
)

type Config struct {
	Audio AudioConfig `toml:"audio"`
}

type AudioConfig struct {
	SampleRate uint32 `toml:"sample_rate"`
	Model      string `toml:"model"` // "ntsc" or "pal"

	// Per-channel mix, keyed by channel name (square1, square2, triangle,
	// noise, dpcm). Volume 1.0 is unity; panning 1.0 is centered, 0 full
	// left, 2 full right.
	Volumes map[string]float64 `toml:"volumes"`
	Panning map[string]float64 `toml:"panning"`
}

func defaultConfig() Config {
	return Config{
		Audio: AudioConfig{
			SampleRate: apu.DefaultSampleRate,
			Model:      "ntsc",
		},
	}
}

var configDir = sync.OnceValue(func() string {
	dir := configdir.LocalConfig("apuplay")
	if err := configdir.MakePath(dir); err != nil {
		log.ModEmu.Fatalf("failed to create directory %s: %v", dir, err)
	}
	return dir
})

const cfgFilename = "config.toml"

// loadConfigOrDefault loads the configuration from the apuplay config
// directory, or provides a default one.
func loadConfigOrDefault() Config {
	cfg := defaultConfig()
	_, err := toml.DecodeFile(filepath.Join(configDir(), cfgFilename), &cfg)
	if err != nil {
		return defaultConfig()
	}
	if cfg.Audio.SampleRate == 0 {
		cfg.Audio.SampleRate = apu.DefaultSampleRate
	}
	return cfg
}

// saveConfig into the apuplay config directory.
func saveConfig(cfg Config) error {
	f, err := os.Create(filepath.Join(configDir(), cfgFilename))
	if err != nil {
		return err
	}
	defer f.Close()
	return toml.NewEncoder(f).Encode(cfg)
}

func (ac *AudioConfig) applyMix(mixer *apu.Mixer) {
	channels := map[string]apu.Channel{
		"square1":  apu.Square1,
		"square2":  apu.Square2,
		"triangle": apu.Triangle,
		"noise":    apu.Noise,
		"dpcm":     apu.DPCM,
	}
	for name, vol := range ac.Volumes {
		if ch, ok := channels[name]; ok {
			mixer.SetVolume(ch, vol)
		} else {
			log.ModEmu.Warnf("config: unknown channel %q in volumes", name)
		}
	}
	for name, pan := range ac.Panning {
		if ch, ok := channels[name]; ok {
			mixer.SetPanning(ch, pan)
		} else {
			log.ModEmu.Warnf("config: unknown channel %q in panning", name)
		}
	}
}
