package security

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPermissionSetCaseInsensitive(t *testing.T) {
	set := NewPermissionSet([]string{"Overlay", " NETWORK ", "speech"})

	assert.True(t, set.Has(PermissionOverlay))
	assert.True(t, set.Has(PermissionNetwork))
	assert.True(t, set.Has(PermissionSpeech))
	assert.False(t, set.Has(PermissionStorage))
	assert.True(t, set.Has(Permission("OVERLAY")))
	assert.Equal(t, 3, set.Len())
}

func TestPermissionSetNilSafe(t *testing.T) {
	var set *PermissionSet
	assert.False(t, set.Has(PermissionOverlay))
	assert.Zero(t, set.Len())
	assert.Empty(t, set.List())
}

func TestPermissionError(t *testing.T) {
	err := NewPermissionError("subtitle-sync", PermissionNetwork)
	assert.Contains(t, err.Error(), "subtitle-sync")
	assert.Contains(t, err.Error(), "network")
}

func TestIsKnown(t *testing.T) {
	for _, p := range AllPermissions() {
		assert.True(t, IsKnown(p))
	}
	assert.False(t, IsKnown(Permission("root")))
}

func TestLimitsByName(t *testing.T) {
	assert.Equal(t, StrictResourceLimits(), LimitsByName("strict"))
	assert.Equal(t, RelaxedResourceLimits(), LimitsByName("relaxed"))
	assert.Equal(t, DefaultResourceLimits(), LimitsByName("default"))
	assert.Equal(t, DefaultResourceLimits(), LimitsByName("bogus"))
}
