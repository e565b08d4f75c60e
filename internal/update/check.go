// Package update checks GitHub for a newer jxscout client release and tells the user.
package update

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"jxscout/internal/slogutil"
	"jxscout/internal/version"
)

const (
	// ReleasesURL is the GitHub API endpoint for the latest release
	ReleasesURL = "https://api.github.com/repos/francisconeves97/jxscout-vscode/releases/latest"

	// ReleasesPage is the user-facing releases page
	ReleasesPage = "https://github.com/francisconeves97/jxscout-vscode/releases"

	// DefaultInterval is the minimum time between two checks
	DefaultInterval = time.Hour

	// DisableEnv turns every check into a no-op when set
	DisableEnv = "JXSCOUT_NO_UPDATE_CHECK"

	httpTimeout = 3 * time.Second
)

// githubReleaseInfo represents the relevant fields from GitHub Releases API
type githubReleaseInfo struct {
	TagName string `json:"tag_name"`
}

// UpdateInfo contains information about an available update
type UpdateInfo struct {
	CurrentVersion string `json:"currentVersion"`
	LatestVersion  string `json:"latestVersion"`
	ReleasesURL    string `json:"releasesUrl"`
}

// Message is the notice shown to the user.
func (u *UpdateInfo) Message() string {
	return fmt.Sprintf("A new version of jxscout (%s) is available. You are currently using version %s.",
		u.LatestVersion, u.CurrentVersion)
}

// CheckerOptions configures a Checker. Zero values select the defaults.
type CheckerOptions struct {
	URL            string
	CurrentVersion string
	Cache          *Cache
	Logger         *slog.Logger
}

// Checker fetches the latest release, using a small on-disk cache.
type Checker struct {
	httpc   *resty.Client
	url     string
	current string
	cache   *Cache
	logger  *slog.Logger
}

// NewChecker creates a new update checker.
func NewChecker(opts CheckerOptions) *Checker {
	if opts.URL == "" {
		opts.URL = ReleasesURL
	}
	if opts.CurrentVersion == "" {
		opts.CurrentVersion = version.Version
	}
	if opts.Cache == nil {
		opts.Cache = NewCache(DefaultInterval)
	}
	logger := slogutil.OrDiscard(opts.Logger).With(slogutil.ComponentKey, "update")

	httpc := resty.New()
	httpc.SetTimeout(httpTimeout)
	httpc.SetHeader("User-Agent", version.UserAgent())
	httpc.SetHeader("Accept", "application/vnd.github+json")
	httpc.SetLogger(restyLogger{logger})

	return &Checker{
		httpc:   httpc,
		url:     opts.URL,
		current: opts.CurrentVersion,
		cache:   opts.Cache,
		logger:  logger,
	}
}

// Disabled reports whether checks are turned off through the environment.
func Disabled() bool {
	return os.Getenv(DisableEnv) != ""
}

// Check returns the available update, or nil when the running version is current.
// A fresh cache entry answers without a request.
func (c *Checker) Check(ctx context.Context) (*UpdateInfo, error) {
	if Disabled() {
		return nil, nil
	}

	if cached, stale := c.cache.Get(); cached != nil && !stale {
		return c.compareVersions(cached.LatestVersion), nil
	}

	latest, err := c.fetchLatestVersion(ctx)
	if err != nil {
		return nil, err
	}
	c.cache.Set(latest)
	return c.compareVersions(latest), nil
}

// CheckCached answers from the cache only. It never makes a request.
func (c *Checker) CheckCached() *UpdateInfo {
	if Disabled() {
		return nil
	}
	cached, _ := c.cache.Get()
	if cached == nil {
		return nil
	}
	return c.compareVersions(cached.LatestVersion)
}

// fetchLatestVersion fetches the latest version from GitHub Releases API.
func (c *Checker) fetchLatestVersion(ctx context.Context) (string, error) {
	var release githubReleaseInfo
	resp, err := c.httpc.R().
		SetContext(ctx).
		SetResult(&release).
		Get(c.url)
	if err != nil {
		return "", fmt.Errorf("failed to fetch latest release: %w", err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("failed to fetch latest release: %s", resp.Status())
	}
	if release.TagName == "" {
		return "", fmt.Errorf("latest release has no tag")
	}

	// Strip 'v' prefix from tag if present (e.g., "v0.4.0" -> "0.4.0")
	return strings.TrimPrefix(release.TagName, "v"), nil
}

// compareVersions returns UpdateInfo if latest is newer than the running version
func (c *Checker) compareVersions(latest string) *UpdateInfo {
	if !isNewerVersion(latest, c.current) {
		return nil
	}
	return &UpdateInfo{
		CurrentVersion: c.current,
		LatestVersion:  latest,
		ReleasesURL:    ReleasesPage,
	}
}

// isNewerVersion returns true if version a is newer than version b.
// Handles semver format X.Y.Z with optional pre-release suffixes.
func isNewerVersion(a, b string) bool {
	partsA := parseVersion(a)
	partsB := parseVersion(b)

	for i := 0; i < 3; i++ {
		if partsA[i] > partsB[i] {
			return true
		}
		if partsA[i] < partsB[i] {
			return false
		}
	}

	return false
}

// parseVersion extracts major, minor, patch from a version string
func parseVersion(v string) [3]int {
	var parts [3]int

	v = strings.TrimPrefix(v, "v")
	// Strip any pre-release suffix (e.g., "-beta.1")
	if idx := strings.Index(v, "-"); idx > 0 {
		v = v[:idx]
	}

	fmt.Sscanf(v, "%d.%d.%d", &parts[0], &parts[1], &parts[2])

	return parts
}

// restyLogger routes resty's printf-style logging into slog.
type restyLogger struct {
	logger *slog.Logger
}

func (l restyLogger) Errorf(format string, v ...interface{}) {
	l.logger.Error(strings.TrimSpace(fmt.Sprintf(format, v...)))
}

func (l restyLogger) Warnf(format string, v ...interface{}) {
	l.logger.Warn(strings.TrimSpace(fmt.Sprintf(format, v...)))
}

func (l restyLogger) Debugf(format string, v ...interface{}) {
	l.logger.Debug(strings.TrimSpace(fmt.Sprintf(format, v...)))
}
