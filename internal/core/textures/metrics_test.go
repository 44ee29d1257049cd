package textures

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	m.ObserveUpstream("profile", "ok")
	m.observeResolution(KindSkin, StatusCached, 0.1)
	m.observeFullResolution(true)
	m.observeWrite(ArtifactFace, nil)
	m.observeFreshnessFailure()
}

func TestMetrics_Resolutions(t *testing.T) {
	env := newTestEnv()
	env.provider.SetProfile(testUUID, testSkinHash, testCapeHash)
	m := env.resolver.metrics

	ctx := context.Background()
	_, err := env.resolver.Resolve(ctx, testUUID, KindSkin)
	require.NoError(t, err)
	_, err = env.resolver.Resolve(ctx, testUUID, KindSkin)
	require.NoError(t, err)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Resolutions.WithLabelValues("skin", "downloaded")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Resolutions.WithLabelValues("skin", "cached")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.FullResolutions.WithLabelValues("false")))

	// skin, helm, face and cape
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ArtifactWrites.WithLabelValues("face", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ArtifactWrites.WithLabelValues("cape", "ok")))
}

func TestMetrics_FreshnessFailures(t *testing.T) {
	env := newTestEnv()
	env.provider.SetProfile(testUUID, testSkinHash, "")
	env.freshness.writeErr = errors.New("connection refused")

	_, err := env.resolver.Resolve(context.Background(), testUUID, KindSkin)
	require.NoError(t, err)
	assert.Equal(t, 1.0, testutil.ToFloat64(env.resolver.metrics.FreshnessFailures))
}

func TestMetrics_ObserveUpstream(t *testing.T) {
	m := NewMetrics("test")
	m.ObserveUpstream("profile", "rate_limited")
	m.ObserveUpstream("profile", "rate_limited")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.UpstreamRequests.WithLabelValues("profile", "rate_limited")))

	families, err := m.Registry().Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)
}
