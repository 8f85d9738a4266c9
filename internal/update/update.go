// Package update provides version checking and self-update against GitHub
// releases.
package update

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/creativeprojects/go-selfupdate"
)

const (
	repoOwner     = "pengelbrecht"
	repoName      = "ralph"
	checkInterval = 24 * time.Hour
)

// checkCache stores the last update check result so routine commands don't
// hit the network more than once a day.
type checkCache struct {
	LastCheck       time.Time `json:"last_check"`
	LatestVersion   string    `json:"latest_version,omitempty"`
	UpdateAvailable bool      `json:"update_available"`
}

func cachePath() string {
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		dir = filepath.Join(home, ".config")
	}
	return filepath.Join(dir, "ralph", "update-cache.json")
}

func loadCache() *checkCache {
	path := cachePath()
	if path == "" {
		return nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil
	}
	var cache checkCache
	if err := json.Unmarshal(data, &cache); err != nil {
		return nil
	}
	return &cache
}

func saveCache(cache *checkCache) {
	path := cachePath()
	if path == "" {
		return
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return
	}
	data, err := json.Marshal(cache)
	if err != nil {
		return
	}
	_ = os.WriteFile(path, data, 0644)
}

// isDev reports whether the version string marks an unreleased build.
func isDev(version string) bool {
	v := strings.TrimPrefix(version, "v")
	return v == "" || v == "dev"
}

func newUpdater() (*selfupdate.Updater, error) {
	source, err := selfupdate.NewGitHubSource(selfupdate.GitHubConfig{})
	if err != nil {
		return nil, fmt.Errorf("creating GitHub source: %w", err)
	}
	updater, err := selfupdate.NewUpdater(selfupdate.Config{Source: source})
	if err != nil {
		return nil, fmt.Errorf("creating updater: %w", err)
	}
	return updater, nil
}

// CheckForUpdate returns the latest released version and whether it is newer
// than the running one. Dev builds never report an update.
func CheckForUpdate(ctx context.Context, currentVersion string) (string, bool, error) {
	if isDev(currentVersion) {
		return "", false, nil
	}

	updater, err := newUpdater()
	if err != nil {
		return "", false, err
	}

	latest, found, err := updater.DetectLatest(ctx, selfupdate.NewRepositorySlug(repoOwner, repoName))
	if err != nil {
		return "", false, fmt.Errorf("detecting latest version: %w", err)
	}
	if !found {
		return "", false, nil
	}

	current := strings.TrimPrefix(currentVersion, "v")
	return latest.Version(), latest.GreaterThan(current), nil
}

// Update replaces the running binary with the latest release.
func Update(ctx context.Context, currentVersion string) error {
	if isDev(currentVersion) {
		return fmt.Errorf("cannot update dev builds")
	}

	updater, err := newUpdater()
	if err != nil {
		return err
	}

	latest, found, err := updater.DetectLatest(ctx, selfupdate.NewRepositorySlug(repoOwner, repoName))
	if err != nil {
		return fmt.Errorf("detecting latest version: %w", err)
	}
	if !found {
		return fmt.Errorf("no releases found")
	}

	current := strings.TrimPrefix(currentVersion, "v")
	if !latest.GreaterThan(current) {
		return fmt.Errorf("already at latest version (%s)", currentVersion)
	}

	exe, err := os.Executable()
	if err != nil {
		return fmt.Errorf("locating executable: %w", err)
	}
	if err := updater.UpdateTo(ctx, latest, exe); err != nil {
		return fmt.Errorf("updating binary: %w", err)
	}
	return nil
}

// CheckPeriodically checks for updates at most once per checkInterval and
// returns a short notice string when a newer release exists, empty otherwise.
// Meant to be called at the start of common commands; failures are silent.
func CheckPeriodically(currentVersion string) string {
	if isDev(currentVersion) {
		return ""
	}

	if cache := loadCache(); cache != nil && time.Since(cache.LastCheck) < checkInterval {
		if cache.UpdateAvailable && cache.LatestVersion != "" &&
			strings.TrimPrefix(cache.LatestVersion, "v") != strings.TrimPrefix(currentVersion, "v") {
			return notice(currentVersion, cache.LatestVersion)
		}
		return ""
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	latest, hasUpdate, err := CheckForUpdate(ctx, currentVersion)
	saveCache(&checkCache{
		LastCheck:       time.Now(),
		LatestVersion:   latest,
		UpdateAvailable: hasUpdate && err == nil,
	})

	if err != nil || !hasUpdate {
		return ""
	}
	return notice(currentVersion, latest)
}

func notice(current, latest string) string {
	return fmt.Sprintf("Update available: %s -> %s (run: ralph upgrade)", current, latest)
}
