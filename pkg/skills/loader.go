package skills

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/afero"
	"go.uber.org/zap"
)

// LoadFailure records one plugin that could not be registered.
type LoadFailure struct {
	Path string
	Err  error
}

func (f LoadFailure) Error() string {
	return fmt.Sprintf("load %s: %v", f.Path, f.Err)
}

func (f LoadFailure) Unwrap() error { return f.Err }

// LoadResult summarises a directory scan.
type LoadResult struct {
	Loaded   []string
	Failures []LoadFailure
}

func (r LoadResult) FailureCount() int {
	return len(r.Failures)
}

// Loader discovers plugin definitions in a directory. Entries are visited in
// lexicographic order so registration order is reproducible.
type Loader struct {
	fs     afero.Fs
	logger *zap.Logger
	script *ScriptCompiler
}

func NewLoader(fs afero.Fs, logger *zap.Logger) *Loader {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loader{
		fs:     fs,
		logger: logger,
		script: NewScriptCompiler(),
	}
}

// Discover lists plugin files in dir. A missing directory holds no plugins.
func (l *Loader) Discover(dir string) ([]string, error) {
	entries, err := afero.ReadDir(l.fs, dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read skills dir: %w", err)
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		if pluginKind(e.Name()) != "" {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(files)
	return files, nil
}

// Factory reads one plugin file and returns the factory it defines.
func (l *Loader) Factory(path string) (Factory, error) {
	src, err := afero.ReadFile(l.fs, path)
	if err != nil {
		return nil, err
	}
	switch pluginKind(path) {
	case "script":
		return l.script.Compile(path, src)
	case "manifest":
		return ParseManifest(src)
	default:
		return nil, fmt.Errorf("unsupported plugin type %q", filepath.Ext(path))
	}
}

// Load scans dir and registers every plugin it can. A bad plugin is logged
// and recorded; it never stops the scan.
func (l *Loader) Load(r *Registry, dir string) (LoadResult, error) {
	var res LoadResult

	files, err := l.Discover(dir)
	if err != nil {
		return res, err
	}

	for _, path := range files {
		names, err := l.loadOne(r, path)
		if err != nil {
			fail := LoadFailure{Path: path, Err: err}
			res.Failures = append(res.Failures, fail)
			l.logger.Warn("Skipping plugin", zap.String("path", path), zap.Error(err))
			continue
		}
		res.Loaded = append(res.Loaded, names...)
		l.logger.Debug("Loaded plugin", zap.String("path", path), zap.Strings("skills", names))
	}

	l.logger.Info("Skill plugins loaded",
		zap.String("dir", dir),
		zap.Int("loaded", len(res.Loaded)),
		zap.Int("failed", res.FailureCount()))
	return res, nil
}

func (l *Loader) loadOne(r *Registry, path string) (names []string, err error) {
	// Interpreted plugins can panic while being evaluated.
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("panic: %v", p)
		}
	}()
	f, err := l.Factory(path)
	if err != nil {
		return nil, err
	}
	return r.Use(f)
}

func pluginKind(name string) string {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".go":
		if strings.HasSuffix(name, "_test.go") {
			return ""
		}
		return "script"
	case ".hjson":
		return "manifest"
	}
	return ""
}

// IsPlugin reports whether a file name would be picked up by Discover.
func IsPlugin(name string) bool {
	base := filepath.Base(name)
	return !strings.HasPrefix(base, ".") && pluginKind(base) != ""
}
