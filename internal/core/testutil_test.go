package core

import (
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"example.com/backstage/services/flickering/config"
	"example.com/backstage/services/flickering/internal/infrastructure"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
)

// countingLoader records how often configuration files are read.
type countingLoader struct {
	inner infrastructure.Loader
	calls atomic.Int32
}

func (l *countingLoader) Load(group string) (map[string]infrastructure.Value, error) {
	l.calls.Add(1)
	return l.inner.Load(group)
}

// newTestContainer writes configYAML (when non-empty) into an in-memory
// installation root and returns a container over it.
func newTestContainer(t *testing.T, configYAML string, opts ...ContainerOption) (*Container, afero.Fs, *test.Hook) {
	t.Helper()

	fs := afero.NewMemMapFs()
	require.NoError(t, fs.MkdirAll("/app", 0o755))
	if configYAML != "" {
		require.NoError(t, afero.WriteFile(fs, "/app/config.yaml", []byte(configYAML), 0o644))
	}

	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)

	settings := config.Default()
	settings.Root = "/app"

	all := append([]ContainerOption{WithFilesystem(fs), WithContainerLogger(logger)}, opts...)
	return NewContainer(settings, all...), fs, hook
}

// apiServer serves body for every request and counts hits.
func apiServer(t *testing.T, status int, body string) (*httptest.Server, *atomic.Int32, chan *http.Request) {
	t.Helper()

	var hits atomic.Int32
	requests := make(chan *http.Request, 16)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		select {
		case requests <- r:
		default:
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv, &hits, requests
}

func newNullLogger() (*logrus.Logger, *test.Hook) {
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	return logger, hook
}
