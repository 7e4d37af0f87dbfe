package automation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tokfleet/pkg/window"
)

func TestWindowSurfaceCommands(t *testing.T) {
	w := window.NewFakeWindow(window.Spec{Title: "TikTok - alice"})
	surface := NewWindowSurface(w)

	surface.ScrollBy(80)
	surface.ScrollToTop()
	surface.Like()
	surface.Follow()
	require.True(t, surface.Compose("Nice video!"))
	surface.Submit()

	commands := w.Commands()
	require.Len(t, commands, 6)
	assert.Equal(t, "scroll", commands[0].Name)
	assert.Equal(t, 80, commands[0].Params["amount"])
	assert.Equal(t, "scroll-top", commands[1].Name)
	assert.Equal(t, "tap-like", commands[2].Name)
	assert.Equal(t, "tap-follow", commands[3].Name)
	assert.Equal(t, "compose-comment", commands[4].Name)
	assert.Equal(t, "Nice video!", commands[4].Params["text"])
	assert.Equal(t, "submit-comment", commands[5].Name)
}

func TestWindowSurfaceDestroyedWindow(t *testing.T) {
	w := window.NewFakeWindow(window.Spec{})
	surface := NewWindowSurface(w)
	w.Close()

	assert.False(t, surface.CanLike())
	assert.False(t, surface.CanFollow())
	assert.False(t, surface.Compose("hi"))
	assert.False(t, surface.AtEnd())
}
