package core

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"example.com/backstage/services/flickering/config"
	"example.com/backstage/services/flickering/internal/infrastructure"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContainer_LazyBuild(t *testing.T) {
	c, fs, _ := newTestContainer(t, "api_key: ABC\n")

	assert.Equal(t, 0, c.builds)
	exists, err := afero.DirExists(fs, "/app/cache")
	require.NoError(t, err)
	assert.False(t, exists, "nothing is wired before the first lookup")

	_, err = c.Config()
	require.NoError(t, err)
	assert.Equal(t, 1, c.builds)

	exists, err = afero.DirExists(fs, "/app/cache")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestContainer_ResolveReturnsSameInstances(t *testing.T) {
	c, _, _ := newTestContainer(t, "api_key: ABC\n")

	first := map[ServiceName]any{}
	for _, name := range []ServiceName{ServiceFilesystem, ServiceConfigLoader, ServiceConfig, ServiceCache} {
		svc, err := c.Resolve(name)
		require.NoError(t, err)
		require.NotNil(t, svc)
		first[name] = svc
	}

	for i := 0; i < 3; i++ {
		for name, want := range first {
			got, err := c.Resolve(name)
			require.NoError(t, err)
			assert.Same(t, want, got, "service %s", name)
		}
	}

	repo, err := c.Config()
	require.NoError(t, err)
	assert.Same(t, first[ServiceConfig], repo)

	cache, err := c.Cache()
	require.NoError(t, err)
	assert.Same(t, first[ServiceCache], cache)

	loader, err := c.ConfigLoader()
	require.NoError(t, err)
	assert.Same(t, first[ServiceConfigLoader], loader)

	fs, err := c.Filesystem()
	require.NoError(t, err)
	assert.Same(t, first[ServiceFilesystem], fs)

	assert.Equal(t, 1, c.builds)
}

func TestContainer_ResolveSelf(t *testing.T) {
	c, _, _ := newTestContainer(t, "")

	self, err := c.Resolve("")
	require.NoError(t, err)
	assert.Same(t, c, self)
}

func TestContainer_UnknownService(t *testing.T) {
	c, _, _ := newTestContainer(t, "")

	_, err := c.Resolve("mailer")
	assert.ErrorIs(t, err, ErrUnknownService)
}

func TestContainer_WiresFileServices(t *testing.T) {
	c, _, _ := newTestContainer(t, "")

	loader, err := c.ConfigLoader()
	require.NoError(t, err)
	fileLoader, ok := loader.(*infrastructure.FileLoader)
	require.True(t, ok)
	assert.Equal(t, "/app", fileLoader.Root())

	cache, err := c.Cache()
	require.NoError(t, err)
	fileStore, ok := cache.(*infrastructure.FileStore)
	require.True(t, ok)
	assert.Equal(t, "/app/cache", fileStore.Dir())

	repo, err := c.Config()
	require.NoError(t, err)
	assert.Equal(t, ConfigGroup, repo.Group())
}

func TestContainer_ConcurrentFirstUse(t *testing.T) {
	loader := &countingLoader{}
	c, fs, _ := newTestContainer(t, "api_key: ABC\n")
	fileLoader, err := infrastructure.NewFileLoader(fs, "/app", logrus.New())
	require.NoError(t, err)
	loader.inner = fileLoader
	WithConfigLoader(loader)(c)

	const workers = 32
	repos := make([]*infrastructure.Repository, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			repo, err := c.Config()
			if err == nil {
				repos[i] = repo
			}
		}(i)
	}
	wg.Wait()

	for i := 1; i < workers; i++ {
		assert.Same(t, repos[0], repos[i])
	}
	assert.Equal(t, int32(1), loader.calls.Load())
	assert.Equal(t, 1, c.builds)
}

func TestContainer_MissingRootIsPermanent(t *testing.T) {
	logger, hook := test.NewNullLogger()
	settings := config.Default()
	settings.Root = "/does/not/exist"
	c := NewContainer(settings, WithFilesystem(afero.NewMemMapFs()), WithContainerLogger(logger))

	_, err := c.Config()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to create config loader")

	_, again := c.Cache()
	assert.Equal(t, err, again)
	assert.Equal(t, 1, c.builds)

	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, logrus.ErrorLevel, hook.LastEntry().Level)
}

func TestContainer_UnwritableCacheDir(t *testing.T) {
	base := afero.NewMemMapFs()
	require.NoError(t, base.MkdirAll("/app", 0o755))

	settings := config.Default()
	settings.Root = "/app"
	c := NewContainer(settings, WithFilesystem(afero.NewReadOnlyFs(base)))

	_, err := c.Resolve(ServiceCache)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to create cache store")
}

func TestContainer_ConfigLoadFailure(t *testing.T) {
	c, _, _ := newTestContainer(t, "", WithConfigLoader(failingLoader{}))

	_, err := c.Config()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to create config repository")
}

func TestContainer_RedisUnreachable(t *testing.T) {
	settings := config.Default()
	settings.Root = "/app"
	settings.Cache.Driver = config.CacheDriverRedis
	settings.Redis.Addr = "127.0.0.1:1"
	settings.Redis.DialTimeout = 200 * time.Millisecond

	fs := afero.NewMemMapFs()
	require.NoError(t, fs.MkdirAll("/app", 0o755))
	c := NewContainer(settings, WithFilesystem(fs))

	_, err := c.Cache()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to connect to Redis")
}

func TestContainer_CacheStoreOverride(t *testing.T) {
	store, err := infrastructure.NewFileStore(afero.NewMemMapFs(), "/elsewhere")
	require.NoError(t, err)

	c, _, _ := newTestContainer(t, "", WithCacheStore(store))

	got, err := c.Cache()
	require.NoError(t, err)
	assert.Same(t, store, got)
	assert.NoError(t, c.Close())
}

func TestContainer_CloseBeforeBuild(t *testing.T) {
	c, fs, _ := newTestContainer(t, "api_key: ABC\n")

	require.NoError(t, c.Close())

	_, err := c.Config()
	assert.ErrorIs(t, err, ErrContainerClosed)
	assert.Equal(t, 0, c.builds)

	exists, err := afero.DirExists(fs, "/app/cache")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestContainer_CloseConcurrentWithFirstUse(t *testing.T) {
	store := &closeCountingStore{}
	c, _, _ := newTestContainer(t, "api_key: ABC\n", WithCacheStore(store))

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			c.Cache()
		}()
		go func() {
			defer wg.Done()
			c.Close()
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), store.closes.Load())
}

type closeCountingStore struct {
	infrastructure.Store
	closes atomic.Int32
}

func (s *closeCountingStore) Close() error {
	s.closes.Add(1)
	return nil
}

type failingLoader struct{}

func (failingLoader) Load(string) (map[string]infrastructure.Value, error) {
	return nil, errors.New("config unreadable")
}
