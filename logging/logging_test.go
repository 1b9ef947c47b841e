package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_DebugEnablesV1(t *testing.T) {
	log, flush, err := New("debug", true)
	require.NoError(t, err)
	defer flush()

	assert.True(t, log.V(1).Enabled())
}

func TestNew_InfoHidesV1(t *testing.T) {
	log, flush, err := New("", false)
	require.NoError(t, err)
	defer flush()

	assert.True(t, log.Enabled())
	assert.False(t, log.V(1).Enabled())
}

func TestNew_RejectsUnknownLevel(t *testing.T) {
	_, flush, err := New("loud", false)
	require.Error(t, err)
	flush()
}
