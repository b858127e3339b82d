// Package speech provides the host speech synthesizer contract consumed by
// the plugin runtime. The default synthesizer forwards to a shell hook; a
// missing hook degrades to a logged no-op so plugins keep working on
// platforms without TTS.
package speech

import (
	"errors"
	"strings"
	"sync"

	"github.com/overglass/overglass/internal/logging"
)

// ErrEmptyText is returned when there is nothing to speak.
var ErrEmptyText = errors.New("empty speech text")

// Utterance is one queued speech request.
type Utterance struct {
	Text   string
	Voice  string
	Rate   float64
	Volume float64
}

// Synthesizer forwards speak requests to the platform shell.
type Synthesizer struct {
	mu sync.Mutex

	speak func(u Utterance) error
	stop  func()

	log *logging.Logger
}

// New creates a synthesizer. Nil hooks degrade to logged no-ops.
func New(log *logging.Logger, speak func(u Utterance) error, stop func()) *Synthesizer {
	if log == nil {
		log = logging.Nop()
	}
	return &Synthesizer{
		speak: speak,
		stop:  stop,
		log:   log.Component("speech"),
	}
}

// Speak queues an utterance. Options recognized: voice (string), rate and
// volume (numbers); anything else is ignored.
func (s *Synthesizer) Speak(text string, opts map[string]any) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return ErrEmptyText
	}

	u := Utterance{Text: text, Rate: 1, Volume: 1}
	if v, ok := opts["voice"].(string); ok {
		u.Voice = v
	}
	if r, ok := numberOpt(opts, "rate"); ok && r > 0 {
		u.Rate = r
	}
	if v, ok := numberOpt(opts, "volume"); ok && v >= 0 && v <= 1 {
		u.Volume = v
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.speak == nil {
		s.log.Debug().Str("text", text).Msg("no synthesizer backend, dropped")
		return nil
	}
	return s.speak(u)
}

// Stop cancels any in-flight speech.
func (s *Synthesizer) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stop != nil {
		s.stop()
	}
}

func numberOpt(opts map[string]any, key string) (float64, bool) {
	switch v := opts[key].(type) {
	case float64:
		return v, true
	case int64:
		return float64(v), true
	}
	return 0, false
}
