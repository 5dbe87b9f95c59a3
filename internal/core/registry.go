package core

import (
	"fmt"
	"sync"

	"example.com/backstage/services/flickering/config"
	"example.com/backstage/services/flickering/internal/infrastructure"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
)

// ServiceName identifies a service held by the Container.
type ServiceName string

const (
	ServiceFilesystem   ServiceName = "filesystem"
	ServiceConfigLoader ServiceName = "config-loader"
	ServiceConfig       ServiceName = "config"
	ServiceCache        ServiceName = "cache"
)

// ConfigGroup is the configuration group the facade reads options from.
const ConfigGroup = "config"

// Container holds the infrastructure shared by every Client built from it.
// Services are wired on first lookup and reused for the container's lifetime;
// a wiring failure is permanent.
type Container struct {
	settings config.Config
	logger   logrus.FieldLogger

	once sync.Once
	err  error

	closeOnce sync.Once
	closeErr  error

	fs     afero.Fs
	loader infrastructure.Loader
	repo   *infrastructure.Repository
	cache  infrastructure.Store

	builds int
}

// ContainerOption substitutes a service before the container is built.
type ContainerOption func(*Container)

// WithFilesystem replaces the OS filesystem.
func WithFilesystem(fs afero.Fs) ContainerOption {
	return func(c *Container) { c.fs = fs }
}

// WithConfigLoader replaces the file-backed configuration loader.
func WithConfigLoader(loader infrastructure.Loader) ContainerOption {
	return func(c *Container) { c.loader = loader }
}

// WithCacheStore replaces the configured cache store.
func WithCacheStore(store infrastructure.Store) ContainerOption {
	return func(c *Container) { c.cache = store }
}

// WithContainerLogger sets the logger handed to infrastructure services.
func WithContainerLogger(logger logrus.FieldLogger) ContainerOption {
	return func(c *Container) { c.logger = logger }
}

// NewContainer returns an unbuilt container. Nothing is opened until the
// first service lookup.
func NewContainer(settings config.Config, opts ...ContainerOption) *Container {
	c := &Container{settings: settings}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		if settings.Logger != nil {
			c.logger = settings.Logger
		} else {
			c.logger = logrus.StandardLogger()
		}
	}
	return c
}

// Settings returns the bootstrap configuration the container was created with.
func (c *Container) Settings() config.Config { return c.settings }

// Resolve returns the named service, building the container on first use.
// An empty name returns the container itself.
func (c *Container) Resolve(name ServiceName) (any, error) {
	if err := c.build(); err != nil {
		return nil, err
	}

	switch name {
	case "":
		return c, nil
	case ServiceFilesystem:
		return c.fs, nil
	case ServiceConfigLoader:
		return c.loader, nil
	case ServiceConfig:
		return c.repo, nil
	case ServiceCache:
		return c.cache, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownService, name)
	}
}

// Filesystem returns the shared filesystem.
func (c *Container) Filesystem() (afero.Fs, error) {
	if err := c.build(); err != nil {
		return nil, err
	}
	return c.fs, nil
}

// ConfigLoader returns the shared configuration loader.
func (c *Container) ConfigLoader() (infrastructure.Loader, error) {
	if err := c.build(); err != nil {
		return nil, err
	}
	return c.loader, nil
}

// Config returns the repository scoped to ConfigGroup.
func (c *Container) Config() (*infrastructure.Repository, error) {
	if err := c.build(); err != nil {
		return nil, err
	}
	return c.repo, nil
}

// Cache returns the shared cache store.
func (c *Container) Cache() (infrastructure.Store, error) {
	if err := c.build(); err != nil {
		return nil, err
	}
	return c.cache, nil
}

// Close releases the cache store. Closing an unbuilt container prevents any
// later build; lookups then fail with ErrContainerClosed.
func (c *Container) Close() error {
	c.once.Do(func() { c.err = ErrContainerClosed })
	c.closeOnce.Do(func() {
		if c.cache != nil {
			c.closeErr = c.cache.Close()
		}
	})
	return c.closeErr
}

func (c *Container) build() error {
	c.once.Do(func() {
		c.builds++
		c.err = c.wire()
		if c.err != nil {
			c.logger.WithError(c.err).Error("Failed to build service container")
		}
	})
	return c.err
}

// wire builds filesystem -> config loader -> config repository, then
// filesystem -> cache store.
func (c *Container) wire() error {
	if c.fs == nil {
		c.fs = infrastructure.NewFilesystem()
	}

	if c.loader == nil {
		loader, err := infrastructure.NewFileLoader(c.fs, c.settings.Root, c.logger)
		if err != nil {
			return fmt.Errorf("failed to create config loader: %w", err)
		}
		c.loader = loader
	}

	repo, err := infrastructure.NewRepository(c.loader, ConfigGroup)
	if err != nil {
		return fmt.Errorf("failed to create config repository: %w", err)
	}
	c.repo = repo

	if c.cache == nil {
		store, err := c.newCacheStore()
		if err != nil {
			return fmt.Errorf("failed to create cache store: %w", err)
		}
		c.cache = store
	}

	c.logger.WithFields(logrus.Fields{
		"root":         c.settings.Root,
		"cache_driver": c.settings.Cache.Driver,
	}).Debug("Service container built")

	return nil
}

func (c *Container) newCacheStore() (infrastructure.Store, error) {
	switch c.settings.Cache.Driver {
	case config.CacheDriverRedis:
		store, err := infrastructure.NewRedisStore(c.settings.Redis, c.settings.Cache.Prefix)
		if err != nil {
			return nil, err
		}
		return store, nil
	case config.CacheDriverFile, "":
		store, err := infrastructure.NewFileStore(c.fs, c.settings.CachePath())
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown cache driver %q", c.settings.Cache.Driver)
	}
}
