// Package player models the embedded browser surface used for video
// playback. The real surface lives in the platform shell; this state model
// is what the plugin runtime and the app wiring talk to, with a notify hook
// for broadcasting state changes to subscribed plugins.
package player

import (
	"sync"

	"github.com/overglass/overglass/internal/logging"
)

// Player holds playback state and forwards script injection to the shell.
type Player struct {
	mu sync.Mutex

	playing bool
	current float64
	dur     float64
	volume  float64
	rate    float64
	url     string

	// inject is the shell hook executing script in the browser surface.
	inject func(src string) error

	// notify receives every state change as (event, payload) for host
	// broadcast.
	notify func(event string, data map[string]any)

	log *logging.Logger
}

// Option configures a Player.
type Option func(*Player)

// WithInjector sets the shell's script injection hook.
func WithInjector(fn func(src string) error) Option {
	return func(p *Player) { p.inject = fn }
}

// WithNotifier sets the state-change broadcast hook.
func WithNotifier(fn func(event string, data map[string]any)) Option {
	return func(p *Player) { p.notify = fn }
}

// New creates a paused player at full volume and normal rate.
func New(log *logging.Logger, opts ...Option) *Player {
	if log == nil {
		log = logging.Nop()
	}
	p := &Player{
		volume: 1,
		rate:   1,
		log:    log.Component("player"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Player) emit(event string, data map[string]any) {
	if p.notify != nil {
		p.notify(event, data)
	}
}

// Play starts playback.
func (p *Player) Play() {
	p.mu.Lock()
	changed := !p.playing
	p.playing = true
	p.mu.Unlock()
	if changed {
		p.emit("playStateChanged", map[string]any{"playing": true})
	}
}

// Pause stops playback.
func (p *Player) Pause() {
	p.mu.Lock()
	changed := p.playing
	p.playing = false
	p.mu.Unlock()
	if changed {
		p.emit("playStateChanged", map[string]any{"playing": false})
	}
}

// Playing reports playback state.
func (p *Player) Playing() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.playing
}

// CurrentTime returns the playhead position in seconds.
func (p *Player) CurrentTime() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current
}

// Seek moves the playhead, clamped to [0, duration].
func (p *Player) Seek(seconds float64) {
	p.mu.Lock()
	if seconds < 0 {
		seconds = 0
	}
	if p.dur > 0 && seconds > p.dur {
		seconds = p.dur
	}
	p.current = seconds
	p.mu.Unlock()
	p.emit("timeUpdate", map[string]any{"currentTime": seconds})
}

// Duration returns the media length in seconds, 0 when unknown.
func (p *Player) Duration() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.dur
}

// SetDuration is called by the shell when media metadata arrives.
func (p *Player) SetDuration(seconds float64) {
	p.mu.Lock()
	p.dur = seconds
	p.mu.Unlock()
}

// Volume returns the volume in [0, 1].
func (p *Player) Volume() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.volume
}

// SetVolume sets the volume, clamped to [0, 1].
func (p *Player) SetVolume(v float64) {
	if v < 0 {
		v = 0
	}
	if v > 1 {
		v = 1
	}
	p.mu.Lock()
	changed := p.volume != v
	p.volume = v
	p.mu.Unlock()
	if changed {
		p.emit("volumeChanged", map[string]any{"volume": v})
	}
}

// Rate returns the playback rate.
func (p *Player) Rate() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.rate
}

// SetRate sets the playback rate; non-positive values are ignored.
func (p *Player) SetRate(r float64) {
	if r <= 0 {
		return
	}
	p.mu.Lock()
	changed := p.rate != r
	p.rate = r
	p.mu.Unlock()
	if changed {
		p.emit("rateChanged", map[string]any{"rate": r})
	}
}

// URL returns the current media URL.
func (p *Player) URL() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.url
}

// Navigate is called by the shell on page change.
func (p *Player) Navigate(url string) {
	p.mu.Lock()
	changed := p.url != url
	p.url = url
	p.current = 0
	p.mu.Unlock()
	if changed {
		p.emit("urlChanged", map[string]any{"url": url})
	}
}

// InjectScript executes script in the browser surface.
func (p *Player) InjectScript(src string) error {
	if p.inject == nil {
		p.log.Debug().Msg("script injection without a shell, dropped")
		return nil
	}
	return p.inject(src)
}
