package workspace

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	mapset "github.com/deckarep/golang-set/v2"
	"github.com/sirupsen/logrus"
)

// DefaultDenylist holds directory names discovery never descends into.
var DefaultDenylist = []string{
	"node_modules", ".git", ".hg", "dist", "build", "coverage", ".angular", "out-tsc",
}

// Project is one discovered compilation unit: its manifest plus the absolute
// paths of the member files it declares that exist on disk.
type Project struct {
	Manifest *Manifest
	Files    []string
}

// Name returns a short human-readable identifier for logging.
func (p *Project) Name() string {
	return p.Manifest.Path
}

// Discoverer walks a directory tree and produces the ordered set of projects
// found underneath it.
type Discoverer struct {
	root     string
	denylist mapset.Set[string]
	logger   *logrus.Logger
}

// NewDiscoverer creates a discoverer rooted at root with the default denylist.
func NewDiscoverer(root string, logger *logrus.Logger) *Discoverer {
	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})
	}
	return &Discoverer{
		root:     root,
		denylist: mapset.NewSet(DefaultDenylist...),
		logger:   logger,
	}
}

// WithDenylist replaces the directory denylist.
func (d *Discoverer) WithDenylist(names ...string) *Discoverer {
	d.denylist = mapset.NewSet(names...)
	return d
}

// Discover walks the root and returns every project whose manifest declares a
// file set. A manifest that fails to parse or declares no file set is skipped
// with a warning; discovery never aborts for one bad manifest. Zero projects
// is a valid, empty result.
func (d *Discoverer) Discover() ([]*Project, error) {
	var projects []*Project

	err := filepath.WalkDir(d.root, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			d.logger.WithError(err).WithField("path", path).Warn("Skipping unreadable path")
			return fs.SkipDir
		}

		if entry.IsDir() {
			if path != d.root && d.denylist.Contains(entry.Name()) {
				return fs.SkipDir
			}
			return nil
		}

		if !isManifestName(entry.Name()) {
			return nil
		}

		manifest, perr := ParseManifest(path)
		if perr != nil {
			d.logger.WithError(perr).WithField("manifest", path).Warn("Skipping unparseable manifest")
			return nil
		}
		if !manifest.HasFileSet() {
			d.logger.WithField("manifest", path).Warn("Skipping manifest without files or include patterns")
			return nil
		}

		project, perr := d.expand(manifest)
		if perr != nil {
			d.logger.WithError(perr).WithField("manifest", path).Warn("Skipping manifest whose file set could not be expanded")
			return nil
		}
		projects = append(projects, project)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", d.root, err)
	}

	return projects, nil
}

// expand turns the manifest's declared file list and include patterns into
// concrete on-disk file paths. Declared files that do not exist are dropped
// with a warning rather than failing the project.
func (d *Discoverer) expand(m *Manifest) (*Project, error) {
	seen := mapset.NewSet[string]()
	project := &Project{Manifest: m}

	for _, f := range m.Files {
		abs := filepath.Join(m.Dir, f)
		if _, err := os.Stat(abs); err != nil {
			d.logger.WithField("file", abs).Warn("Declared file missing on disk")
			continue
		}
		if seen.Add(abs) {
			project.Files = append(project.Files, abs)
		}
	}

	for _, pattern := range m.Include {
		matches, err := doublestar.FilepathGlob(filepath.Join(m.Dir, pattern))
		if err != nil {
			return nil, fmt.Errorf("include pattern %q: %w", pattern, err)
		}
		for _, match := range matches {
			if !isSourceFile(match) {
				continue
			}
			if info, err := os.Stat(match); err != nil || info.IsDir() {
				continue
			}
			if seen.Add(match) {
				project.Files = append(project.Files, match)
			}
		}
	}

	return project, nil
}

func isManifestName(name string) bool {
	return strings.HasPrefix(name, "tsconfig") && strings.HasSuffix(name, ".json")
}

func isSourceFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".ts", ".tsx":
		return true
	}
	return false
}
