package textures

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"Headshot/internal/mojang"
)

func TestNewService_NilResolver(t *testing.T) {
	s, err := NewService(nil)
	assert.Nil(t, s)
	assert.ErrorIs(t, err, ErrNilDependency)
}

func TestService_GetAvatar(t *testing.T) {
	env := newTestEnv()
	env.provider.SetProfile(testUUID, testSkinHash, "")

	res, err := env.service.GetAvatar(context.Background(), testUUID, false, 64)
	require.NoError(t, err)
	assert.Equal(t, StatusDownloaded, res.Status)
	assert.Equal(t, testSkinHash, res.Hash)
	assert.Equal(t, "face:skin-"+testSkinHash+"@64", string(res.Image))
}

func TestService_GetAvatar_Helm(t *testing.T) {
	env := newTestEnv()
	env.provider.SetProfile(testUUID, testSkinHash, "")

	res, err := env.service.GetAvatar(context.Background(), testUUID, true, 8)
	require.NoError(t, err)
	assert.Equal(t, "helm:face:skin-"+testSkinHash+"@8", string(res.Image))
}

func TestService_GetAvatar_HelmMissingFallsBackToFace(t *testing.T) {
	env := newTestEnv()
	env.provider.SetProfile(testUUID, testSkinHash, "")
	ctx := context.Background()

	_, err := env.service.GetAvatar(ctx, testUUID, true, 8)
	require.NoError(t, err)
	env.artifacts.Delete(ArtifactHelm, testSkinHash)

	res, err := env.service.GetAvatar(ctx, testUUID, true, 8)
	require.NoError(t, err)
	assert.Equal(t, StatusCached, res.Status)
	assert.Equal(t, "face:skin-"+testSkinHash+"@8", string(res.Image))
}

func TestService_GetAvatar_SizeIsClamped(t *testing.T) {
	env := newTestEnv()
	env.provider.SetProfile(testUUID, testSkinHash, "")
	ctx := context.Background()

	res, err := env.service.GetAvatar(ctx, testUUID, false, 100000)
	require.NoError(t, err)
	assert.Equal(t, "face:skin-"+testSkinHash+"@512", string(res.Image))

	res, err = env.service.GetAvatar(ctx, testUUID, false, 0)
	require.NoError(t, err)
	assert.Equal(t, "face:skin-"+testSkinHash+"@160", string(res.Image))
}

func TestService_GetAvatar_NoSkin(t *testing.T) {
	env := newTestEnv()
	env.provider.SetProfile(testUUID, "", "")

	res, err := env.service.GetAvatar(context.Background(), testUUID, false, 64)
	require.NoError(t, err)
	assert.Equal(t, StatusNoTexture, res.Status)
	assert.Empty(t, res.Hash)
	assert.Nil(t, res.Image)
}

func TestService_GetAvatar_RevalidatedWithoutDownload(t *testing.T) {
	env := newTestEnv()
	env.provider.SetProfile(testUUID, testSkinHash, "")
	env.freshness.Set(testUUID, FreshnessRecord{
		SkinHash:    testSkinHash,
		LastChecked: env.clock.Now().Add(-time.Hour),
	})
	env.artifacts.Set(ArtifactFace, testSkinHash, []byte("stored-face"))

	res, err := env.service.GetAvatar(context.Background(), testUUID, false, 16)
	require.NoError(t, err)
	assert.Equal(t, StatusChecked, res.Status)
	assert.Equal(t, testSkinHash, res.Hash)
	assert.Equal(t, "stored-face@16", string(res.Image))
	assert.Zero(t, env.provider.DownloadCalls())
}

func TestService_GetAvatar_StaleButUsable(t *testing.T) {
	env := newTestEnv()
	env.freshness.Set(testUUID, FreshnessRecord{
		SkinHash:    testSkinHash,
		LastChecked: env.clock.Now().Add(-time.Hour),
	})
	env.artifacts.Set(ArtifactFace, testSkinHash, []byte("stored-face"))
	env.provider.SetProfileErr(mojang.ErrTimeout)

	res, err := env.service.GetAvatar(context.Background(), testUUID, false, 16)
	assert.ErrorIs(t, err, mojang.ErrTimeout)
	assert.Equal(t, StatusError, res.Status)
	assert.Equal(t, testSkinHash, res.Hash)
	assert.Equal(t, "stored-face@16", string(res.Image))
}

func TestService_GetAvatar_ResizeFailure(t *testing.T) {
	env := newTestEnv()
	env.freshness.Set(testUUID, FreshnessRecord{SkinHash: testSkinHash, LastChecked: env.clock.Now()})
	env.artifacts.Set(ArtifactFace, testSkinHash, []byte("corrupt"))
	env.transformer.failOn = "corrupt"

	res, err := env.service.GetAvatar(context.Background(), testUUID, false, 16)
	assert.ErrorIs(t, err, ErrImageProcessing)
	assert.Equal(t, StatusError, res.Status)
	assert.Equal(t, testSkinHash, res.Hash)
	assert.Nil(t, res.Image)
}

func TestService_GetAvatar_SweptFaceIsRebuilt(t *testing.T) {
	env := newTestEnv()
	env.provider.SetProfile(testUUID, testSkinHash, "")
	env.freshness.Set(testUUID, FreshnessRecord{SkinHash: testSkinHash, LastChecked: env.clock.Now()})

	res, err := env.service.GetAvatar(context.Background(), testUUID, true, 16)
	require.NoError(t, err)
	assert.Equal(t, StatusCached, res.Status)
	assert.Equal(t, "helm:face:skin-"+testSkinHash+"@16", string(res.Image))
	assert.True(t, env.artifacts.Exists(ArtifactFace, testSkinHash))
}

func TestService_GetSkin(t *testing.T) {
	env := newTestEnv()
	env.provider.SetProfile(testUUID, testSkinHash, "")

	hash, data, err := env.service.GetSkin(context.Background(), testUUID)
	require.NoError(t, err)
	assert.Equal(t, testSkinHash, hash)
	assert.Equal(t, "skin-"+testSkinHash, string(data))
}

func TestService_GetSkin_DownloadsMissingFile(t *testing.T) {
	env := newTestEnv()
	env.provider.SetProfile(testUUID, testSkinHash, "")
	env.freshness.Set(testUUID, FreshnessRecord{SkinHash: testSkinHash, LastChecked: env.clock.Now()})

	hash, data, err := env.service.GetSkin(context.Background(), testUUID)
	require.NoError(t, err)
	assert.Equal(t, testSkinHash, hash)
	assert.Equal(t, "skin-"+testSkinHash, string(data))
	assert.True(t, env.artifacts.Exists(ArtifactSkin, testSkinHash))
}

func TestService_GetSkin_DownloadTimeout(t *testing.T) {
	env := newTestEnv()
	env.freshness.Set(testUUID, FreshnessRecord{SkinHash: testSkinHash, LastChecked: env.clock.Now()})
	env.provider.SetDownloadErr(mojang.ErrTimeout)

	hash, data, err := env.service.GetSkin(context.Background(), testUUID)
	assert.ErrorIs(t, err, mojang.ErrTimeout)
	assert.Equal(t, testSkinHash, hash)
	assert.Nil(t, data)
}

func TestService_GetSkin_NoSkin(t *testing.T) {
	env := newTestEnv()
	env.provider.SetProfile(testUUID, "", "")

	hash, data, err := env.service.GetSkin(context.Background(), testUUID)
	require.NoError(t, err)
	assert.Empty(t, hash)
	assert.Nil(t, data)
}

func TestService_GetCape(t *testing.T) {
	env := newTestEnv()
	env.provider.SetProfile(testUUID, testSkinHash, testCapeHash)

	hash, data, err := env.service.GetCape(context.Background(), testUUID)
	require.NoError(t, err)
	assert.Equal(t, testCapeHash, hash)
	assert.Equal(t, "cape-"+testCapeHash, string(data))
}

func TestService_GetCape_NoCape(t *testing.T) {
	env := newTestEnv()
	env.provider.SetProfile(testUUID, testSkinHash, "")

	hash, data, err := env.service.GetCape(context.Background(), testUUID)
	require.NoError(t, err)
	assert.Empty(t, hash)
	assert.Nil(t, data)
}

func TestService_GetCape_NotDownloadable(t *testing.T) {
	env := newTestEnv()
	env.freshness.Set(testUUID, FreshnessRecord{CapeHash: testCapeHash, LastChecked: env.clock.Now()})

	hash, data, err := env.service.GetCape(context.Background(), testUUID)
	require.NoError(t, err, "an advertised cape without bytes is tolerated")
	assert.Equal(t, testCapeHash, hash)
	assert.Nil(t, data)
}

func TestService_GetRender_Caching(t *testing.T) {
	env := newTestEnv()
	env.provider.SetProfile(testUUID, testSkinHash, "")
	ctx := context.Background()

	first, err := env.service.GetRender(ctx, testUUID, 4, true, true)
	require.NoError(t, err)
	assert.Equal(t, StatusDownloaded, first.Status)
	assert.Equal(t, testSkinHash, first.Hash)
	assert.True(t, env.artifacts.Exists(ArtifactRender, testSkinHash+"-4-bodyhelm"))

	second, err := env.service.GetRender(ctx, testUUID, 4, true, true)
	require.NoError(t, err)
	assert.Equal(t, StatusCached, second.Status)
	assert.Equal(t, first.Image, second.Image)
	assert.Equal(t, 1, env.transformer.RenderCalls())
}

func TestService_GetRender_NoSkin(t *testing.T) {
	env := newTestEnv()
	env.provider.SetProfile(testUUID, "", "")

	res, err := env.service.GetRender(context.Background(), testUUID, 4, false, false)
	require.NoError(t, err)
	assert.Equal(t, StatusNoTexture, res.Status)
	assert.Nil(t, res.Image)
}

func TestService_GetRender_SkinUnavailable(t *testing.T) {
	env := newTestEnv()
	env.freshness.Set(testUUID, FreshnessRecord{SkinHash: testSkinHash, LastChecked: env.clock.Now()})
	env.provider.SetDownloadErr(errors.New("connection reset"))

	res, err := env.service.GetRender(context.Background(), testUUID, 4, false, false)
	assert.ErrorIs(t, err, ErrSkinUnavailable)
	assert.Equal(t, StatusNoTexture, res.Status)
	assert.Nil(t, res.Image)
	assert.Zero(t, env.transformer.RenderCalls())
}

func TestService_GetRender_ResolvesOnce(t *testing.T) {
	env := newTestEnv()
	env.provider.SetProfile(testUUID, testSkinHash, "")

	_, err := env.service.GetRender(context.Background(), testUUID, 2, false, false)
	require.NoError(t, err)

	get, _, _ := env.freshness.Calls()
	assert.Equal(t, 1, get)
}

func TestRenderKey(t *testing.T) {
	tests := []struct {
		helm, body bool
		want       string
	}{
		{false, false, "abc-6-head"},
		{true, false, "abc-6-headhelm"},
		{false, true, "abc-6-body"},
		{true, true, "abc-6-bodyhelm"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, RenderKey("abc", 6, tt.helm, tt.body))
	}
}
