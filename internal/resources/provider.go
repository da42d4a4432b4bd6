package resources

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/amrrules-interpreter/internal/domain"
)

// UnknownVersion is reported when version.txt has not been fetched.
const UnknownVersion = "Unknown"

// Provider serves the local resource files. Each table is read once and
// cached; Reset drops the cache after a fetch.
type Provider struct {
	logger *logrus.Logger
	paths  Paths

	mu        sync.Mutex
	hierarchy *domain.GeneHierarchy
	version   string
	catalog   *domain.DrugCatalog
}

// NewProvider creates a provider over the files configured in cfg.
func NewProvider(logger *logrus.Logger, cfg domain.ResourcesConfig) *Provider {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Provider{logger: logger, paths: PathsFor(cfg)}
}

// Paths returns the resolved resource file locations.
func (p *Provider) Paths() Paths {
	return p.paths
}

// Hierarchy returns the gene hierarchy. A missing hierarchy file yields an
// empty hierarchy, so only exact node and accession matches are possible.
func (p *Provider) Hierarchy(ctx context.Context) (*domain.GeneHierarchy, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.hierarchy != nil {
		return p.hierarchy, nil
	}

	f, err := os.Open(p.paths.Hierarchy)
	if errors.Is(err, fs.ErrNotExist) {
		p.logger.WithField("file", p.paths.Hierarchy).Warn("Gene hierarchy not found, run 'amrrules fetch' to download it")
		p.hierarchy = domain.NewGeneHierarchy(nil)
		return p.hierarchy, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open gene hierarchy: %w", err)
	}
	defer f.Close()

	h, err := ReadHierarchy(f)
	if err != nil {
		return nil, err
	}
	p.logger.WithFields(logrus.Fields{
		"file":  p.paths.Hierarchy,
		"nodes": h.Len(),
	}).Debug("Gene hierarchy loaded")
	p.hierarchy = h
	return h, nil
}

// DatabaseVersion returns the AMRFinderPlus database version, or
// UnknownVersion when version.txt is absent.
func (p *Provider) DatabaseVersion(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.version != "" {
		return p.version, nil
	}

	data, err := os.ReadFile(p.paths.Version)
	if errors.Is(err, fs.ErrNotExist) {
		p.version = UnknownVersion
		return p.version, nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read database version: %w", err)
	}
	p.version = strings.TrimSpace(string(data))
	if p.version == "" {
		p.version = UnknownVersion
	}
	return p.version, nil
}

// Catalog returns the drug catalog built from the conversion table and the
// drug class map. Missing files leave the corresponding lookups empty.
func (p *Provider) Catalog() (*domain.DrugCatalog, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.catalog != nil {
		return p.catalog, nil
	}

	catalog := domain.NewDrugCatalog()
	tables := []struct {
		path string
		read func(f *os.File) (int, error)
	}{
		{p.paths.Conversion, func(f *os.File) (int, error) { return ReadConversion(f, catalog) }},
		{p.paths.DrugClasses, func(f *os.File) (int, error) { return ReadDrugClasses(f, catalog) }},
	}
	for _, t := range tables {
		f, err := os.Open(t.path)
		if errors.Is(err, fs.ErrNotExist) {
			p.logger.WithField("file", t.path).Warn("Drug table not found, unmatched markers will be reported under other markers")
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to open drug table: %w", err)
		}
		n, err := t.read(f)
		f.Close()
		if err != nil {
			return nil, err
		}
		p.logger.WithFields(logrus.Fields{"file": t.path, "rows": n}).Debug("Drug table loaded")
	}
	p.catalog = catalog
	return catalog, nil
}

// Reset drops cached tables so the next call rereads the files.
func (p *Provider) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.hierarchy = nil
	p.version = ""
	p.catalog = nil
}
