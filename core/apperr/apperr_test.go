package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, ExitOK},
		{"invalid name", InvalidName("op", "a b"), ExitConfiguration},
		{"not found", NotFound("op", "x"), ExitConfiguration},
		{"wrapped configuration", fmt.Errorf("outer: %w", Configuration("op", "bad", nil)), ExitConfiguration},
		{"connectivity", Connectivity("op", errors.New("dial")), ExitConnectivity},
		{"engine", Engine("op", "x", errors.New("exit 1")), ExitFailure},
		{"plain", errors.New("boom"), ExitFailure},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExitCode(tt.err))
		})
	}
}

func TestError_Message(t *testing.T) {
	err := Engine("orchestrator.sync", "ableton", errors.New("exit status 1"))
	assert.Equal(t, "orchestrator.sync: sync engine failed (ableton): exit status 1", err.Error())

	nf := NotFound("destination.get", "ableton")
	assert.Equal(t, `destination.get: destination "ableton" not found`, nf.Error())
}

func TestSuggestions_Joined(t *testing.T) {
	a := Engine("op", "a", nil, "resync a")
	b := Engine("op", "b", nil, "resync b", "resync a")
	joined := errors.Join(a, fmt.Errorf("wrap: %w", b))

	assert.Equal(t, []string{"resync a", "resync b"}, Suggestions(joined))
	assert.Equal(t, KindEngineFailure, KindOf(joined))
}

func TestIsConfiguration(t *testing.T) {
	assert.True(t, IsConfiguration(InvalidName("op", "!")))
	assert.True(t, IsConfiguration(NotFound("op", "x")))
	assert.False(t, IsConfiguration(Connectivity("op", nil)))
	assert.False(t, IsConfiguration(errors.New("x")))
}

func TestExitCode_JoinedOrder(t *testing.T) {
	engine := Engine("orchestrator.sync", "ableton", errors.New("exit status 1"))
	missing := NotFound("destination.get", "notes")
	offline := Connectivity("remote.check", errors.New("timeout"))

	assert.Equal(t, ExitConfiguration, ExitCode(errors.Join(engine, missing)))
	assert.Equal(t, ExitConfiguration, ExitCode(errors.Join(missing, engine)))
	assert.Equal(t, ExitConnectivity, ExitCode(errors.Join(engine, offline)))
	assert.Equal(t, ExitConnectivity, ExitCode(errors.Join(offline, engine)))
	assert.Equal(t, ExitConfiguration, ExitCode(errors.Join(offline, fmt.Errorf("wrap: %w", missing))))
	assert.Equal(t, ExitFailure, ExitCode(errors.Join(engine, errors.New("plain"))))
}
