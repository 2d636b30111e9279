package config

import (
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

// Live holds the current configuration and swaps it when the config file
// changes. Invalid edits are logged and ignored; the last good value stays.
type Live struct {
	v       *viper.Viper
	current atomic.Pointer[Config]
	notify  []func(Config)
}

// NewLive starts from cfg, which should be the value decoded from v.
func NewLive(v *viper.Viper, cfg Config) *Live {
	l := &Live{v: v}
	l.current.Store(&cfg)
	return l
}

// Current returns the latest valid configuration.
func (l *Live) Current() Config {
	return *l.current.Load()
}

// OnChange registers fn to run after each successful reload. Register before Watch.
func (l *Live) OnChange(fn func(Config)) {
	l.notify = append(l.notify, fn)
}

// Watch starts watching the config file. It does nothing when no file was
// loaded.
func (l *Live) Watch() {
	if l.v.ConfigFileUsed() == "" {
		log.Debug().Msg("No config file loaded, hot reload disabled")
		return
	}
	l.v.OnConfigChange(l.reload)
	l.v.WatchConfig()
	log.Info().Str("file", l.v.ConfigFileUsed()).Msg("Watching config file")
}

func (l *Live) reload(e fsnotify.Event) {
	cfg, err := Decode(l.v)
	if err != nil {
		log.Error().Err(err).Str("file", e.Name).Msg("Config reload rejected")
		return
	}
	l.current.Store(&cfg)
	log.Info().
		Str("file", e.Name).
		Str("op", e.Op.String()).
		Float64("orb", cfg.Scan.Orb).
		Int("stride", cfg.Scan.Stride).
		Float64("horizon_years", cfg.Scan.HorizonYears).
		Msg("Config reloaded")
	for _, fn := range l.notify {
		fn(cfg)
	}
}
