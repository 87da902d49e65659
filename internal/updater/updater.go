// Package updater checks GitHub releases for a newer deepframe build and
// replaces the running binary with it.
//
// The release is downloaded to a temporary file next to the executable
// and renamed over it, so an interrupted update leaves the old binary in
// place. The server is not restarted.
package updater

import (
	"archive/tar"
	"archive/zip"
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	binaryName     = "deepframe"
	latestRelease  = "https://api.github.com/repos/HendryAvila/deepframe/releases/latest"
	requestTimeout = 10 * time.Second
)

// ErrUpToDate is returned by SelfUpdate when no newer release exists.
var ErrUpToDate = errors.New("already at the latest version")

// Release holds the fields of a GitHub release that the updater reads.
type Release struct {
	TagName string  `json:"tag_name"`
	HTMLURL string  `json:"html_url"`
	Assets  []Asset `json:"assets"`
}

// Asset is one downloadable archive of a release.
type Asset struct {
	Name string `json:"name"`
	URL  string `json:"browser_download_url"`
}

// Result is the outcome of a version check.
type Result struct {
	CurrentVersion  string
	LatestVersion   string
	UpdateAvailable bool
	ReleaseURL      string
}

// Checker talks to the release endpoint.
type Checker struct {
	endpoint string
	client   *http.Client
	log      *zap.Logger
	goos     string
	goarch   string
}

// Option configures a Checker.
type Option func(*Checker)

// WithEndpoint points the checker at another release URL.
func WithEndpoint(url string) Option {
	return func(c *Checker) { c.endpoint = url }
}

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Checker) { c.client = client }
}

// WithLogger sets the logger.
func WithLogger(log *zap.Logger) Option {
	return func(c *Checker) {
		if log != nil {
			c.log = log
		}
	}
}

// New creates a Checker for the public deepframe releases.
func New(opts ...Option) *Checker {
	c := &Checker{
		endpoint: latestRelease,
		client:   &http.Client{Timeout: requestTimeout},
		log:      zap.NewNop(),
		goos:     runtime.GOOS,
		goarch:   runtime.GOARCH,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Check compares current against the latest release. Network failures are
// logged at debug level and reported as "no update".
func (c *Checker) Check(ctx context.Context, current string) *Result {
	res := &Result{CurrentVersion: normalizeVersion(current)}
	rel, err := c.latest(ctx, current)
	if err != nil {
		c.log.Debug("version check failed", zap.Error(err))
		return res
	}
	res.LatestVersion = normalizeVersion(rel.TagName)
	res.ReleaseURL = rel.HTMLURL
	res.UpdateAvailable = isNewer(res.CurrentVersion, res.LatestVersion)
	return res
}

// SelfUpdate installs the latest release over the running executable.
func (c *Checker) SelfUpdate(ctx context.Context, current string) (*Result, error) {
	rel, err := c.latest(ctx, current)
	if err != nil {
		return nil, err
	}
	res := &Result{
		CurrentVersion: normalizeVersion(current),
		LatestVersion:  normalizeVersion(rel.TagName),
		ReleaseURL:     rel.HTMLURL,
	}
	if !isNewer(res.CurrentVersion, res.LatestVersion) {
		return res, ErrUpToDate
	}
	res.UpdateAvailable = true

	name := c.assetName(res.LatestVersion)
	var url string
	for _, a := range rel.Assets {
		if a.Name == name {
			url = a.URL
			break
		}
	}
	if url == "" {
		return res, fmt.Errorf("no release asset %s for %s/%s", name, c.goos, c.goarch)
	}

	archive, err := c.get(ctx, url, current)
	if err != nil {
		return res, fmt.Errorf("downloading %s: %w", name, err)
	}
	binary, err := extract(archive, name)
	if err != nil {
		return res, fmt.Errorf("extracting %s: %w", name, err)
	}

	exe, err := os.Executable()
	if err != nil {
		return res, fmt.Errorf("locating executable: %w", err)
	}
	if exe, err = filepath.EvalSymlinks(exe); err != nil {
		return res, fmt.Errorf("resolving executable: %w", err)
	}
	if err := replace(exe, binary, c.goos); err != nil {
		return res, err
	}
	c.log.Info("binary updated", zap.String("from", res.CurrentVersion), zap.String("to", res.LatestVersion))
	return res, nil
}

func (c *Checker) latest(ctx context.Context, current string) (*Release, error) {
	body, err := c.get(ctx, c.endpoint, current)
	if err != nil {
		return nil, fmt.Errorf("fetching latest release: %w", err)
	}
	var rel Release
	if err := json.Unmarshal(body, &rel); err != nil {
		return nil, fmt.Errorf("parsing release: %w", err)
	}
	return &rel, nil
}

func (c *Checker) get(ctx context.Context, url, current string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/vnd.github.v3+json")
	req.Header.Set("User-Agent", binaryName+"/"+current)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s returned %d", url, resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

// assetName matches the GoReleaser archive name template.
func (c *Checker) assetName(version string) string {
	ext := "tar.gz"
	if c.goos == "windows" {
		ext = "zip"
	}
	return fmt.Sprintf("%s_%s_%s_%s.%s", binaryName, version, c.goos, c.goarch, ext)
}

// replace writes binary next to exe and renames it into place. Windows
// cannot overwrite a running executable, so the old one is moved aside.
func replace(exe string, binary []byte, goos string) error {
	tmp := exe + ".new"
	if err := os.WriteFile(tmp, binary, 0o755); err != nil {
		return fmt.Errorf("writing new binary: %w", err)
	}
	if goos == "windows" {
		old := exe + ".old"
		_ = os.Remove(old)
		if err := os.Rename(exe, old); err != nil {
			_ = os.Remove(tmp)
			return fmt.Errorf("moving current binary aside: %w", err)
		}
	}
	if err := os.Rename(tmp, exe); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("replacing binary: %w", err)
	}
	return nil
}

func extract(archive []byte, assetName string) ([]byte, error) {
	if strings.HasSuffix(assetName, ".zip") {
		return extractZip(archive)
	}
	return extractTarGz(archive)
}

func isBinary(name string) bool {
	base := filepath.Base(name)
	return base == binaryName || base == binaryName+".exe"
}

func extractTarGz(archive []byte) ([]byte, error) {
	gz, err := gzip.NewReader(bytes.NewReader(archive))
	if err != nil {
		return nil, fmt.Errorf("opening gzip: %w", err)
	}
	defer func() { _ = gz.Close() }()

	tr := tar.NewReader(gz)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading tar: %w", err)
		}
		if isBinary(hdr.Name) {
			return io.ReadAll(tr)
		}
	}
	return nil, fmt.Errorf("%s binary not found in archive", binaryName)
}

func extractZip(archive []byte) ([]byte, error) {
	zr, err := zip.NewReader(bytes.NewReader(archive), int64(len(archive)))
	if err != nil {
		return nil, fmt.Errorf("opening zip: %w", err)
	}
	for _, f := range zr.File {
		if !isBinary(f.Name) {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, err
		}
		defer func() { _ = rc.Close() }()
		return io.ReadAll(rc)
	}
	return nil, fmt.Errorf("%s binary not found in archive", binaryName)
}

func normalizeVersion(v string) string {
	return strings.TrimPrefix(v, "v")
}

// isNewer compares dotted versions numerically. A "dev" build never
// reports an update.
func isNewer(current, latest string) bool {
	if current == "" || latest == "" || current == "dev" {
		return false
	}
	cur := versionParts(current)
	lat := versionParts(latest)
	for i := range cur {
		if lat[i] != cur[i] {
			return lat[i] > cur[i]
		}
	}
	return false
}

func versionParts(v string) [3]int {
	var out [3]int
	for i, part := range strings.SplitN(v, ".", 3) {
		for _, ch := range part {
			if ch < '0' || ch > '9' {
				break
			}
			out[i] = out[i]*10 + int(ch-'0')
		}
	}
	return out
}
