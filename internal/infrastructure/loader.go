package infrastructure

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"github.com/spf13/viper"
)

// Loader reads one named configuration group.
type Loader interface {
	Load(group string) (map[string]Value, error)
}

// configExtensions lists the formats tried for a group, in order.
var configExtensions = []string{"yaml", "yml", "json", "toml"}

// FileLoader reads <root>/<group>.<ext> through viper.
type FileLoader struct {
	fs     afero.Fs
	root   string
	logger logrus.FieldLogger
}

// NewFileLoader creates a loader for configuration files under root. The
// directory must exist and be readable.
func NewFileLoader(fs afero.Fs, root string, logger logrus.FieldLogger) (*FileLoader, error) {
	info, err := fs.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("config directory %s unavailable: %w", root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("config path %s is not a directory", root)
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &FileLoader{fs: fs, root: root, logger: logger}, nil
}

// Root returns the directory configuration files are read from.
func (l *FileLoader) Root() string { return l.root }

// Load returns the settings of group. A group with no file is empty, not an
// error; a file that exists but cannot be parsed is.
func (l *FileLoader) Load(group string) (map[string]Value, error) {
	path, ok, err := l.find(group)
	if err != nil {
		return nil, err
	}
	if !ok {
		l.logger.WithField("group", group).Debug("No configuration file for group")
		return map[string]Value{}, nil
	}

	v := viper.New()
	v.SetFs(l.fs)
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	settings := v.AllSettings()
	out := make(map[string]Value, len(settings))
	for k, raw := range settings {
		out[k] = FromAny(raw)
	}

	l.logger.WithFields(logrus.Fields{
		"group": group,
		"file":  path,
		"keys":  len(out),
	}).Debug("Loaded configuration group")

	return out, nil
}

func (l *FileLoader) find(group string) (string, bool, error) {
	for _, ext := range configExtensions {
		path := filepath.Join(l.root, group+"."+ext)
		info, err := l.fs.Stat(path)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return "", false, fmt.Errorf("failed to stat %s: %w", path, err)
		}
		if info.IsDir() {
			continue
		}
		return path, true, nil
	}
	return "", false, nil
}
