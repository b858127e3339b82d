package speech

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSpeakForwardsUtterance(t *testing.T) {
	var got Utterance
	s := New(nil, func(u Utterance) error {
		got = u
		return nil
	}, nil)

	require.NoError(t, s.Speak("boss spawning", map[string]any{
		"voice":  "en-GB",
		"rate":   1.5,
		"volume": 0.5,
	}))
	assert.Equal(t, Utterance{Text: "boss spawning", Voice: "en-GB", Rate: 1.5, Volume: 0.5}, got)
}

func TestSpeakDefaults(t *testing.T) {
	var got Utterance
	s := New(nil, func(u Utterance) error {
		got = u
		return nil
	}, nil)

	require.NoError(t, s.Speak("hello", nil))
	assert.Equal(t, Utterance{Text: "hello", Rate: 1, Volume: 1}, got)
}

func TestSpeakIgnoresBadOptions(t *testing.T) {
	var got Utterance
	s := New(nil, func(u Utterance) error {
		got = u
		return nil
	}, nil)

	require.NoError(t, s.Speak("hello", map[string]any{
		"voice":  42,
		"rate":   -2.0,
		"volume": 7.0,
		"pitch":  "high",
	}))
	assert.Equal(t, Utterance{Text: "hello", Rate: 1, Volume: 1}, got)
}

func TestSpeakEmptyText(t *testing.T) {
	s := New(nil, func(Utterance) error {
		t.Fatal("backend should not be reached")
		return nil
	}, nil)

	require.ErrorIs(t, s.Speak("", nil), ErrEmptyText)
	require.ErrorIs(t, s.Speak("   ", nil), ErrEmptyText)
}

func TestSpeakWithoutBackend(t *testing.T) {
	s := New(nil, nil, nil)
	require.NoError(t, s.Speak("hello", nil))
	s.Stop()
}

func TestSpeakBackendError(t *testing.T) {
	boom := errors.New("audio device busy")
	s := New(nil, func(Utterance) error { return boom }, nil)
	require.ErrorIs(t, s.Speak("hello", nil), boom)
}

func TestStop(t *testing.T) {
	stopped := false
	s := New(nil, nil, func() { stopped = true })
	s.Stop()
	assert.True(t, stopped)
}
