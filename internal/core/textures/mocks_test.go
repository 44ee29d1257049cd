package textures

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"
	"time"

	"Headshot/internal/mojang"
)

const (
	testUUID     = "ec561538f3fd461daff5086b22154bce"
	testSkinHash = "a116e69a845e227f7ca1fdde8c357c8c821ebd4ba619382ea4a1f87d4ae94"
	testCapeHash = "953cac8b779fe41383e675ee2b86071a71658f2180f56fbce8aa315ea70e2ed6"
)

func skinURL(hash string) string { return "http://textures.minecraft.net/texture/" + hash }

// newProfile builds a profile whose textures property points at the given
// URLs. Empty URLs are omitted.
func newProfile(id, skin, cape string) *mojang.Profile {
	var payload mojang.TexturesPayload
	payload.ProfileID = id
	if skin != "" {
		payload.Textures.Skin = &mojang.TextureEntry{URL: skin}
	}
	if cape != "" {
		payload.Textures.Cape = &mojang.TextureEntry{URL: cape}
	}
	raw, _ := json.Marshal(payload)
	return &mojang.Profile{
		ID:   id,
		Name: "tester",
		Properties: []mojang.Property{
			{Name: "textures", Value: base64.StdEncoding.EncodeToString(raw)},
		},
	}
}

// MockFreshness implements FreshnessStore for testing
type MockFreshness struct {
	mu         sync.Mutex
	records    map[string]FreshnessRecord
	getErr     error
	writeErr   error
	getCalls   int
	touchCalls int
	putCalls   int
	now        func() time.Time
}

func NewMockFreshness() *MockFreshness {
	return &MockFreshness{
		records: make(map[string]FreshnessRecord),
		now:     time.Now,
	}
}

func (m *MockFreshness) Get(_ context.Context, key string) (*FreshnessRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.getCalls++
	if m.getErr != nil {
		return nil, m.getErr
	}
	rec, ok := m.records[key]
	if !ok {
		return nil, nil
	}
	return &rec, nil
}

func (m *MockFreshness) Touch(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.touchCalls++
	if m.writeErr != nil {
		return m.writeErr
	}
	if rec, ok := m.records[key]; ok {
		rec.LastChecked = m.now()
		m.records[key] = rec
	}
	return nil
}

func (m *MockFreshness) Put(_ context.Context, key, skinHash, capeHash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.putCalls++
	if m.writeErr != nil {
		return m.writeErr
	}
	m.records[key] = FreshnessRecord{SkinHash: skinHash, CapeHash: capeHash, LastChecked: m.now()}
	return nil
}

func (m *MockFreshness) Set(key string, rec FreshnessRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[key] = rec
}

func (m *MockFreshness) Record(key string) (FreshnessRecord, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[key]
	return rec, ok
}

func (m *MockFreshness) Calls() (get, touch, put int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.getCalls, m.touchCalls, m.putCalls
}

// MockArtifacts implements ArtifactStore for testing
type MockArtifacts struct {
	mu         sync.Mutex
	data       map[string][]byte
	writeErr   error
	writeCalls int
}

func NewMockArtifacts() *MockArtifacts {
	return &MockArtifacts{data: make(map[string][]byte)}
}

func artifactKey(kind ArtifactKind, key string) string {
	return string(kind) + "/" + key
}

func (m *MockArtifacts) Exists(kind ArtifactKind, key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.data[artifactKey(kind, key)]
	return ok
}

func (m *MockArtifacts) Read(kind ArtifactKind, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.data[artifactKey(kind, key)]
	return data, ok, nil
}

func (m *MockArtifacts) Write(kind ArtifactKind, key string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writeCalls++
	if m.writeErr != nil {
		return m.writeErr
	}
	m.data[artifactKey(kind, key)] = data
	return nil
}

func (m *MockArtifacts) Set(kind ArtifactKind, key string, data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[artifactKey(kind, key)] = data
}

func (m *MockArtifacts) Delete(kind ArtifactKind, key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, artifactKey(kind, key))
}

func (m *MockArtifacts) Get(kind ArtifactKind, key string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.data[artifactKey(kind, key)]
	return data, ok
}

func (m *MockArtifacts) WriteCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writeCalls
}

// MockProvider implements TextureProvider for testing
type MockProvider struct {
	mu            sync.Mutex
	profiles      map[string]*mojang.Profile
	usernameURLs  map[string]string
	downloads     map[string][]byte
	profileErr    error
	downloadErr   error
	delay         time.Duration
	profileCalls  int
	usernameCalls int
	downloadCalls int
}

func NewMockProvider() *MockProvider {
	return &MockProvider{
		profiles:     make(map[string]*mojang.Profile),
		usernameURLs: make(map[string]string),
		downloads:    make(map[string][]byte),
	}
}

func (m *MockProvider) FetchProfile(_ context.Context, uuid string) (*mojang.Profile, error) {
	m.mu.Lock()
	m.profileCalls++
	delay, err, profile := m.delay, m.profileErr, m.profiles[uuid]
	m.mu.Unlock()

	if delay > 0 {
		time.Sleep(delay)
	}
	if err != nil {
		return nil, err
	}
	return profile, nil
}

func (m *MockProvider) ResolveUsernameURL(_ context.Context, username string, t mojang.TextureType) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.usernameCalls++
	return m.usernameURLs[username+":"+string(t)], nil
}

func (m *MockProvider) Download(_ context.Context, url string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.downloadCalls++
	if m.downloadErr != nil {
		return nil, m.downloadErr
	}
	return m.downloads[url], nil
}

func (m *MockProvider) TextureURL(hash string) string {
	return skinURL(hash)
}

// SetProfile registers a profile and the bytes behind its texture URLs.
func (m *MockProvider) SetProfile(uuid, skinHash, capeHash string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var skin, cape string
	if skinHash != "" {
		skin = skinURL(skinHash)
		m.downloads[skin] = []byte("skin-" + skinHash)
	}
	if capeHash != "" {
		cape = skinURL(capeHash)
		m.downloads[cape] = []byte("cape-" + capeHash)
	}
	m.profiles[uuid] = newProfile(uuid, skin, cape)
}

func (m *MockProvider) SetUsername(username, skinHash string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	url := skinURL(skinHash)
	m.usernameURLs[username+":"+string(mojang.TextureSkin)] = url
	m.downloads[url] = []byte("skin-" + skinHash)
}

func (m *MockProvider) RemoveDownload(url string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.downloads, url)
}

func (m *MockProvider) SetProfileErr(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.profileErr = err
}

func (m *MockProvider) SetDownloadErr(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.downloadErr = err
}

func (m *MockProvider) ProfileCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.profileCalls
}

func (m *MockProvider) UsernameCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.usernameCalls
}

func (m *MockProvider) DownloadCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.downloadCalls
}

// MockTransformer implements Transformer for testing. Outputs are tagged
// copies of the input so tests can tell which transform produced them.
type MockTransformer struct {
	mu          sync.Mutex
	failOn      string
	renderCalls int
}

func NewMockTransformer() *MockTransformer {
	return &MockTransformer{}
}

func (m *MockTransformer) check(data []byte) error {
	if m.failOn != "" && string(data) == m.failOn {
		return fmt.Errorf("%w: test failure", ErrImageProcessing)
	}
	return nil
}

func (m *MockTransformer) ExtractFace(skin []byte) ([]byte, error) {
	if err := m.check(skin); err != nil {
		return nil, err
	}
	return append([]byte("face:"), skin...), nil
}

func (m *MockTransformer) ExtractHelm(face, _ []byte) ([]byte, error) {
	return append([]byte("helm:"), face...), nil
}

func (m *MockTransformer) Resize(img []byte, size int) ([]byte, error) {
	if err := m.check(img); err != nil {
		return nil, err
	}
	return append(append([]byte{}, img...), []byte("@"+strconv.Itoa(size))...), nil
}

func (m *MockTransformer) RenderModel(skin []byte, scale int, helm, body bool) ([]byte, error) {
	m.mu.Lock()
	m.renderCalls++
	m.mu.Unlock()
	if err := m.check(skin); err != nil {
		return nil, err
	}
	return []byte(fmt.Sprintf("render:%s:%d:%t:%t", skin, scale, helm, body)), nil
}

func (m *MockTransformer) RenderCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.renderCalls
}

// fakeClock is a settable time source.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type testEnv struct {
	freshness   *MockFreshness
	artifacts   *MockArtifacts
	provider    *MockProvider
	transformer *MockTransformer
	clock       *fakeClock
	resolver    *Resolver
	service     *Service
}

func newTestEnv() *testEnv {
	clock := newFakeClock()
	env := &testEnv{
		freshness:   NewMockFreshness(),
		artifacts:   NewMockArtifacts(),
		provider:    NewMockProvider(),
		transformer: NewMockTransformer(),
		clock:       clock,
	}
	env.freshness.now = clock.Now

	resolver, err := NewResolver(env.freshness, env.artifacts, env.provider, env.transformer, DefaultConfig(), NewMetrics("test"))
	if err != nil {
		panic(err)
	}
	resolver.now = clock.Now
	env.resolver = resolver

	service, err := NewService(resolver)
	if err != nil {
		panic(err)
	}
	env.service = service
	return env
}
