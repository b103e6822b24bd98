package cmd

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/newsdecades/newsdecades/internal/appid"
	"github.com/newsdecades/newsdecades/internal/observability"
)

func TestIdentityComplete(t *testing.T) {
	ctx := context.Background()

	identity, err := appid.Get(ctx)
	assert.NoError(t, err)
	assert.NoError(t, identityComplete(identity).CheckHealth(ctx))

	assert.Error(t, identityComplete(nil).CheckHealth(ctx))
	assert.Error(t, identityComplete(&appid.Identity{BinaryName: "newsdecades", ConfigName: "newsdecades"}).CheckHealth(ctx))
	assert.Error(t, identityComplete(&appid.Identity{EnvPrefix: "NEWSDECADES_", ConfigName: "newsdecades"}).CheckHealth(ctx))
}

func TestTelemetryReadyWithoutExporter(t *testing.T) {
	original := observability.PrometheusExporter
	observability.PrometheusExporter = nil
	t.Cleanup(func() { observability.PrometheusExporter = original })

	assert.Error(t, telemetryReady(context.Background()))
}
