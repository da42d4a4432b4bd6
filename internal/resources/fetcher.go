package resources

import (
	"archive/tar"
	"bytes"
	"compress/bzip2"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/amrrules-interpreter/internal/domain"
)

// Default resource locations.
const (
	DefaultDatabaseBaseURL = "https://ftp.ncbi.nlm.nih.gov/pathogen/Antimicrobial_resistance/AMRFinderPlus/database"
	DefaultDatabaseRelease = "latest"
	DefaultCardOntologyURL = "https://card.mcmaster.ca/download/5/ontology-v4.0.1.tar.bz2"
	DefaultCardDataURL     = "https://card.mcmaster.ca/download/0/broadstreet-v4.0.1.tar.bz2"

	HierarchyFileName  = "ReferenceGeneHierarchy.txt"
	VersionFileName    = "version.txt"
	ConversionFileName = "amrfp_to_card_drugs_classes.txt"
	DrugClassFileName  = "card_drug_classes.tsv"

	aroOntologyMember   = "aro.obo"
	aroCategoriesMember = "aro_categories.tsv"

	userAgent = "amrrules-interpreter/1.0"
)

// DatabaseURL returns the AMRFinderPlus FTP location of file for a database
// release such as "latest" or "2024-07-22.1".
func DatabaseURL(release, file string) string {
	return DefaultDatabaseBaseURL + "/" + release + "/" + file
}

// Paths resolves the local resource file locations from config.
type Paths struct {
	Hierarchy   string
	Version     string
	Conversion  string
	DrugClasses string
}

// PathsFor returns the resource files for cfg. Explicit file settings win
// over the resource directory.
func PathsFor(cfg domain.ResourcesConfig) Paths {
	pick := func(explicit, name string) string {
		if explicit != "" {
			return explicit
		}
		return filepath.Join(cfg.Dir, name)
	}
	return Paths{
		Hierarchy:   pick(cfg.HierarchyFile, HierarchyFileName),
		Version:     pick(cfg.VersionFile, VersionFileName),
		Conversion:  pick(cfg.ConversionFile, ConversionFileName),
		DrugClasses: pick(cfg.DrugClassFile, DrugClassFileName),
	}
}

// Fetcher downloads reference resources over HTTP. Requests are paced by a
// rate limiter and guarded by a circuit breaker.
type Fetcher struct {
	logger     *logrus.Logger
	cfg        domain.ResourcesConfig
	httpClient *http.Client
	limiter    *rate.Limiter
	breaker    *gobreaker.CircuitBreaker
}

// NewFetcher creates a fetcher for cfg, filling in default URLs.
func NewFetcher(logger *logrus.Logger, cfg domain.ResourcesConfig) *Fetcher {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 60 * time.Second
	}
	if cfg.DatabaseRelease == "" {
		cfg.DatabaseRelease = DefaultDatabaseRelease
	}
	if cfg.HierarchyURL == "" {
		cfg.HierarchyURL = DatabaseURL(cfg.DatabaseRelease, HierarchyFileName)
	}
	if cfg.VersionURL == "" {
		cfg.VersionURL = DatabaseURL(cfg.DatabaseRelease, VersionFileName)
	}
	if cfg.CardOntologyURL == "" {
		cfg.CardOntologyURL = DefaultCardOntologyURL
	}
	if cfg.CardDataURL == "" {
		cfg.CardDataURL = DefaultCardDataURL
	}

	limit := rate.Inf
	if cfg.RateLimit > 0 {
		limit = rate.Limit(cfg.RateLimit)
	}

	return &Fetcher{
		logger:     logger,
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		limiter:    rate.NewLimiter(limit, 1),
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "resources",
			MaxRequests: 1,
			Interval:    30 * time.Second,
			Timeout:     60 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 3
			},
			OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
				logger.WithFields(logrus.Fields{
					"breaker": name,
					"from":    from.String(),
					"to":      to.String(),
				}).Warn("Circuit breaker state changed")
			},
		}),
	}
}

// Get downloads url.
func (f *Fetcher) Get(ctx context.Context, url string) ([]byte, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}
	body, err := f.breaker.Execute(func() (interface{}, error) {
		return f.get(ctx, url)
	})
	if err != nil {
		return nil, err
	}
	return body.([]byte), nil
}

func (f *Fetcher) get(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("GET %s returned status %d: %s", url, resp.StatusCode, strings.TrimSpace(string(snippet)))
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	return body, nil
}

// FetchAMRFinderPlus downloads the gene hierarchy and database version
// and returns the version.
func (f *Fetcher) FetchAMRFinderPlus(ctx context.Context) (string, error) {
	paths := PathsFor(f.cfg)

	hierarchy, err := f.Get(ctx, f.cfg.HierarchyURL)
	if err != nil {
		return "", fmt.Errorf("failed to download gene hierarchy: %w", err)
	}
	if _, err := ReadHierarchy(bytes.NewReader(hierarchy)); err != nil {
		return "", fmt.Errorf("downloaded gene hierarchy is invalid: %w", err)
	}
	if err := writeFileAtomic(paths.Hierarchy, hierarchy); err != nil {
		return "", err
	}

	version, err := f.Get(ctx, f.cfg.VersionURL)
	if err != nil {
		return "", fmt.Errorf("failed to download database version: %w", err)
	}
	if err := writeFileAtomic(paths.Version, version); err != nil {
		return "", err
	}

	v := strings.TrimSpace(string(version))
	f.logger.WithFields(logrus.Fields{
		"hierarchy":        paths.Hierarchy,
		"database_version": v,
	}).Info("AMRFinderPlus resources downloaded")
	return v, nil
}

// FetchCARD downloads the CARD ontology and data archives, derives the
// drug to drug class map and writes it to the drug class file. It returns
// the number of drugs written.
func (f *Fetcher) FetchCARD(ctx context.Context) (int, error) {
	ontology, err := f.fetchMember(ctx, f.cfg.CardOntologyURL, aroOntologyMember)
	if err != nil {
		return 0, err
	}
	categories, err := f.fetchMember(ctx, f.cfg.CardDataURL, aroCategoriesMember)
	if err != nil {
		return 0, err
	}

	classOf, err := BuildCARDDrugClasses(bytes.NewReader(ontology), bytes.NewReader(categories))
	if err != nil {
		return 0, err
	}

	var buf bytes.Buffer
	if err := WriteDrugClasses(&buf, SortedKeys(classOf), classOf); err != nil {
		return 0, err
	}
	target := PathsFor(f.cfg).DrugClasses
	if err := writeFileAtomic(target, buf.Bytes()); err != nil {
		return 0, err
	}
	f.logger.WithFields(logrus.Fields{
		"file":  target,
		"drugs": len(classOf),
	}).Info("CARD drug classes written")
	return len(classOf), nil
}

func (f *Fetcher) fetchMember(ctx context.Context, url, member string) ([]byte, error) {
	archive, err := f.Get(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("failed to download %s: %w", path.Base(url), err)
	}
	data, err := extractTarBz2Member(bytes.NewReader(archive), member)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path.Base(url), err)
	}
	return data, nil
}

// extractTarBz2Member returns the first file in a .tar.bz2 stream whose base
// name is member.
func extractTarBz2Member(r io.Reader, member string) ([]byte, error) {
	tr := tar.NewReader(bzip2.NewReader(r))
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			return nil, fmt.Errorf("%s not found in archive", member)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read archive: %w", err)
		}
		if hdr.Typeflag != tar.TypeReg || path.Base(hdr.Name) != member {
			continue
		}
		return io.ReadAll(tr)
	}
}

func writeFileAtomic(target string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("failed to create resource directory: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(target), ".download-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write %s: %w", target, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write %s: %w", target, err)
	}
	if err := os.Rename(tmp.Name(), target); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to move %s into place: %w", target, err)
	}
	return nil
}
