package prompt

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/trustbrokerd/trustbroker/internal/request"
)

// AppInfoResolver locates the icon and localized name for an application id
// by searching desktop-entry files, preferring the user data home over the
// system data dirs.
type AppInfoResolver struct {
	// UserDataHome is $XDG_DATA_HOME, or its documented fallback.
	UserDataHome string
	// SystemDataDirs is $XDG_DATA_DIRS, split on the OS path separator.
	SystemDataDirs []string
}

// NewAppInfoResolver builds a resolver from the process environment,
// applying the XDG Base Directory fallbacks when the variables are unset.
func NewAppInfoResolver() *AppInfoResolver {
	home := os.Getenv("XDG_DATA_HOME")
	if home == "" {
		if hd, err := os.UserHomeDir(); err == nil {
			home = filepath.Join(hd, ".local", "share")
		}
	}

	dirs := os.Getenv("XDG_DATA_DIRS")
	if dirs == "" {
		dirs = "/usr/local/share:/usr/share"
	}

	return &AppInfoResolver{
		UserDataHome:   home,
		SystemDataDirs: strings.Split(dirs, string(os.PathListSeparator)),
	}
}

// Resolve finds application_id.desktop under UserDataHome/applications
// first, then each of SystemDataDirs/applications in order, and parses its
// Name and Icon keys. Any failure (missing entry, non-absolute icon, icon
// not a regular file) is fatal to the caller's request.
func (r *AppInfoResolver) Resolve(id request.ApplicationID) (request.AppInfo, error) {
	searchDirs := make([]string, 0, 1+len(r.SystemDataDirs))
	if r.UserDataHome != "" {
		searchDirs = append(searchDirs, r.UserDataHome)
	}
	searchDirs = append(searchDirs, r.SystemDataDirs...)

	entryName := string(id) + ".desktop"
	for _, dir := range searchDirs {
		path := filepath.Join(dir, "applications", entryName)
		f, err := os.Open(path)
		if err != nil {
			continue
		}
		info, err := parseDesktopEntry(f, id)
		f.Close()
		if err != nil {
			return request.AppInfo{}, err
		}
		if err := validateIcon(info.IconPath); err != nil {
			return request.AppInfo{}, err
		}
		return info, nil
	}

	return request.AppInfo{}, fmt.Errorf("prompt: no desktop entry found for %q", id)
}

func parseDesktopEntry(f *os.File, id request.ApplicationID) (request.AppInfo, error) {
	info := request.AppInfo{ApplicationID: id}
	inDesktopEntry := false

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if strings.HasPrefix(line, "[") {
			inDesktopEntry = line == "[Desktop Entry]"
			continue
		}
		if !inDesktopEntry {
			continue
		}

		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)

		switch key {
		case "Name":
			if info.LocalizedName == "" {
				info.LocalizedName = value
			}
		case "Icon":
			info.IconPath = value
		}
	}
	if err := scanner.Err(); err != nil {
		return request.AppInfo{}, fmt.Errorf("prompt: reading desktop entry for %q: %w", id, err)
	}
	if info.LocalizedName == "" {
		return request.AppInfo{}, fmt.Errorf("prompt: desktop entry for %q has no Name", id)
	}
	if info.IconPath == "" {
		return request.AppInfo{}, fmt.Errorf("prompt: desktop entry for %q has no Icon", id)
	}
	return info, nil
}

func validateIcon(path string) error {
	if !filepath.IsAbs(path) {
		return fmt.Errorf("prompt: icon path %q is not absolute", path)
	}
	fi, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("prompt: icon path %q: %w", path, err)
	}
	if !fi.Mode().IsRegular() {
		return fmt.Errorf("prompt: icon path %q is not a regular file", path)
	}
	return nil
}
