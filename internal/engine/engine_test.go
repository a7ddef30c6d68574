package engine

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestEngineHost_ReturnsConfiguredHost(t *testing.T) {
	e := &Engine{engineHost: "docker-host.internal"}
	assert.Equal(t, "docker-host.internal", e.EngineHost())
}

func TestCheckHostMemory_DoesNotPanicWithoutSDKClient(t *testing.T) {
	e := &Engine{logger: zerolog.Nop()}
	assert.NotPanics(t, func() { e.CheckHostMemory(context.Background()) })
}
