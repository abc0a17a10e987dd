package module

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"

	"github.com/kbukum/plugwire/errors"
	"github.com/kbukum/plugwire/logger"
	"github.com/kbukum/plugwire/observability"
	"github.com/kbukum/plugwire/version"
)

// DefaultExtension is the file extension of loadable units.
const DefaultExtension = ".so"

// Module is a loaded unit. Modules are never unloaded.
type Module struct {
	path     string
	manifest *Manifest
}

// Path returns the path the module was loaded from.
func (m *Module) Path() string { return m.path }

// Name returns the manifest name.
func (m *Module) Name() string { return m.manifest.Name }

// Exports returns the module's type table in declaration order.
func (m *Module) Exports() []*Export { return m.manifest.Exports }

// Option configures a Catalog.
type Option func(*Catalog)

// WithFs sets the filesystem units are discovered on.
func WithFs(fs afero.Fs) Option {
	return func(c *Catalog) { c.fs = fs }
}

// WithLoader sets the loader used to open units.
func WithLoader(l Loader) Option {
	return func(c *Catalog) { c.loader = l }
}

// WithExtension sets the file extension of loadable units.
func WithExtension(ext string) Option {
	return func(c *Catalog) {
		if ext != "" && !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		c.ext = ext
	}
}

// WithMetrics records module loads and cache hits on m.
func WithMetrics(m *observability.WiringMetrics) Option {
	return func(c *Catalog) { c.metrics = m }
}

// WithLogger sets the catalog logger.
func WithLogger(l *logger.Logger) Option {
	return func(c *Catalog) { c.log = l }
}

// Catalog loads units and caches them by path. It is not safe for
// concurrent use.
type Catalog struct {
	fs      afero.Fs
	loader  Loader
	ext     string
	metrics *observability.WiringMetrics
	log     *logger.Logger

	modules map[string]*Module
	loads   int
}

// NewCatalog creates a catalog reading the OS filesystem with the plugin
// loader unless options say otherwise.
func NewCatalog(opts ...Option) *Catalog {
	c := &Catalog{
		fs:      afero.NewOsFs(),
		loader:  PluginLoader{},
		ext:     DefaultExtension,
		modules: make(map[string]*Module),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.log == nil {
		c.log = logger.Get("module")
	}
	return c
}

// Fs returns the catalog filesystem.
func (c *Catalog) Fs() afero.Fs { return c.fs }

// Loads returns how many times the loader has been invoked.
func (c *Catalog) Loads() int { return c.loads }

// Load returns the module at path, loading it on first use. The returned
// handle is the same for every call with the same path.
func (c *Catalog) Load(ctx context.Context, path string) (*Module, error) {
	path = filepath.Clean(path)
	if m, ok := c.modules[path]; ok {
		c.metrics.RecordCacheHit(ctx, "module")
		c.log.WithContext(ctx).Debug("module cache hit", logger.Fields(logger.FieldPath, path))
		return m, nil
	}

	info, err := c.fs.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.ModuleNotFound(path)
		}
		return nil, errors.ModuleLoad(path, err)
	}
	if info.IsDir() || !c.isUnit(path) {
		return nil, errors.ModuleNotFound(path)
	}

	c.loads++
	manifest, err := c.loader.Open(path)
	if err == nil && manifest == nil {
		err = errors.New(errors.ErrCodeModuleLoad, "unit returned no manifest")
	}
	if err != nil {
		c.metrics.RecordModuleLoad(ctx, "error")
		c.log.WithContext(ctx).Error("module load failed", logger.MergeWithError(
			logger.Fields(logger.FieldPath, path, "toolchain", version.Toolchain()), err))
		return nil, errors.ModuleLoad(path, err).WithDetail("host_toolchain", version.Toolchain())
	}

	m := &Module{path: path, manifest: manifest}
	c.modules[path] = m
	c.metrics.RecordModuleLoad(ctx, "ok")
	c.log.WithContext(ctx).Info("module loaded", logger.Fields(
		logger.FieldPath, path,
		logger.FieldModule, manifest.Name,
		"exports", len(manifest.Exports),
	))
	return m, nil
}

// LoadAll loads every unit under dir. Units in the immediate
// subdirectories of dir are preferred; only when there are none are units
// directly inside dir used. An existing directory with no units yields an
// empty result.
func (c *Catalog) LoadAll(ctx context.Context, dir string) ([]*Module, error) {
	dir = filepath.Clean(dir)
	info, err := c.fs.Stat(dir)
	if err != nil || !info.IsDir() {
		return nil, errors.ModuleNotFound(dir)
	}

	units, err := c.discover(dir)
	if err != nil {
		return nil, errors.ModuleLoad(dir, err)
	}

	modules := make([]*Module, 0, len(units))
	for _, unit := range units {
		m, err := c.Load(ctx, unit)
		if err != nil {
			return nil, err
		}
		modules = append(modules, m)
	}
	return modules, nil
}

// LoadPath loads a single unit when path is a file and every unit under it
// when path is a directory.
func (c *Catalog) LoadPath(ctx context.Context, path string) ([]*Module, error) {
	info, err := c.fs.Stat(filepath.Clean(path))
	if err != nil {
		return nil, errors.ModuleNotFound(path)
	}
	if info.IsDir() {
		return c.LoadAll(ctx, path)
	}
	m, err := c.Load(ctx, path)
	if err != nil {
		return nil, err
	}
	return []*Module{m}, nil
}

func (c *Catalog) discover(dir string) ([]string, error) {
	entries, err := afero.ReadDir(c.fs, dir)
	if err != nil {
		return nil, err
	}

	var nested []string
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		units, err := c.unitsIn(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, err
		}
		nested = append(nested, units...)
	}
	if len(nested) > 0 {
		return nested, nil
	}
	return c.unitsIn(dir)
}

func (c *Catalog) unitsIn(dir string) ([]string, error) {
	entries, err := afero.ReadDir(c.fs, dir)
	if err != nil {
		return nil, err
	}
	var units []string
	for _, e := range entries {
		if !e.IsDir() && c.isUnit(e.Name()) {
			units = append(units, filepath.Join(dir, e.Name()))
		}
	}
	return units, nil
}

func (c *Catalog) isUnit(name string) bool {
	return c.ext == "" || strings.EqualFold(filepath.Ext(name), c.ext)
}
