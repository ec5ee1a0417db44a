// Package profile manages browser user-data profiles under a shared root
// directory. A directory is a usable profile when it carries the managed
// prefix and contains Chromium profile structure (a Default or Profile*
// subdirectory).
package profile

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"hanapilot/internal/console"
)

// managedPrefix marks directories this tool owns; foreign directories under
// the same root are ignored.
const managedPrefix = "google_"

// archivedPrefix hides a managed profile from selection without deleting
// its data. Archived directories fail the managedPrefix check and so never
// enumerate.
const archivedPrefix = "archived_"

// Profile is one selectable user-data directory.
type Profile struct {
	// Name is the on-disk directory name, prefix included.
	Name string
	// DisplayName is what the operator sees, prefix stripped.
	DisplayName string
	// Path is the absolute user-data directory handed to the browser.
	Path string
}

func withPrefix(name string) string {
	if strings.HasPrefix(name, managedPrefix) {
		return name
	}
	return managedPrefix + name
}

func stripPrefix(name string) string {
	return strings.TrimPrefix(name, managedPrefix)
}

// List returns managed profiles under root, in directory order.
func List(root string) ([]Profile, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read profile root: %w", err)
	}

	var profiles []Profile
	for _, e := range entries {
		if !e.IsDir() || !strings.HasPrefix(e.Name(), managedPrefix) {
			continue
		}
		dir := filepath.Join(root, e.Name())
		if !hasProfileStructure(dir) {
			continue
		}
		profiles = append(profiles, Profile{
			Name:        e.Name(),
			DisplayName: stripPrefix(e.Name()),
			Path:        dir,
		})
	}
	return profiles, nil
}

// hasProfileStructure reports whether dir looks like a Chromium user-data
// directory: a Default subdirectory or any Profile* subdirectory.
func hasProfileStructure(dir string) bool {
	if info, err := os.Stat(filepath.Join(dir, "Default")); err == nil && info.IsDir() {
		return true
	}
	subs, err := os.ReadDir(dir)
	if err != nil {
		return false
	}
	for _, s := range subs {
		if s.IsDir() && strings.HasPrefix(s.Name(), "Profile") {
			return true
		}
	}
	return false
}

// Create makes a new empty profile directory (with a Default subdirectory so
// it enumerates as a profile) and returns it.
func Create(root, displayName string) (Profile, error) {
	displayName = strings.TrimSpace(displayName)
	if displayName == "" {
		return Profile{}, fmt.Errorf("profile name required")
	}
	name := withPrefix(displayName)
	dir := filepath.Join(root, name)
	if _, err := os.Stat(dir); err == nil {
		return Profile{}, fmt.Errorf("profile %q already exists", stripPrefix(name))
	}
	if err := os.MkdirAll(filepath.Join(dir, "Default"), 0755); err != nil {
		return Profile{}, fmt.Errorf("failed to create profile: %w", err)
	}
	return Profile{Name: name, DisplayName: stripPrefix(name), Path: dir}, nil
}

// ListArchived returns the archived profiles under root.
func ListArchived(root string) ([]Profile, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read profile root: %w", err)
	}
	var profiles []Profile
	for _, e := range entries {
		if !e.IsDir() || !strings.HasPrefix(e.Name(), archivedPrefix+managedPrefix) {
			continue
		}
		name := strings.TrimPrefix(e.Name(), archivedPrefix)
		profiles = append(profiles, Profile{
			Name:        name,
			DisplayName: stripPrefix(name),
			Path:        filepath.Join(root, e.Name()),
		})
	}
	return profiles, nil
}

// Archive hides a profile from selection by renaming its directory. The
// data stays; Activate reverses it.
func Archive(root string, pr Profile) error {
	from := filepath.Join(root, pr.Name)
	to := filepath.Join(root, archivedPrefix+pr.Name)
	if err := os.Rename(from, to); err != nil {
		return fmt.Errorf("failed to archive profile %q: %w", pr.DisplayName, err)
	}
	return nil
}

// ArchiveByName archives the selectable profile with the given display
// name.
func ArchiveByName(root, displayName string) error {
	profiles, err := List(root)
	if err != nil {
		return err
	}
	for _, pr := range profiles {
		if pr.DisplayName == displayName {
			return Archive(root, pr)
		}
	}
	return fmt.Errorf("profile %q not found", displayName)
}

// Activate restores an archived profile into the selectable set.
func Activate(root, displayName string) (Profile, error) {
	name := withPrefix(displayName)
	from := filepath.Join(root, archivedPrefix+name)
	to := filepath.Join(root, name)
	if err := os.Rename(from, to); err != nil {
		return Profile{}, fmt.Errorf("failed to activate profile %q: %w", displayName, err)
	}
	return Profile{Name: name, DisplayName: stripPrefix(name), Path: to}, nil
}

// Select lets the operator pick an existing profile or create a new one.
// With no existing profiles it goes straight to creation.
func Select(p console.Prompter, root string) (Profile, error) {
	profiles, err := List(root)
	if err != nil {
		return Profile{}, err
	}

	if len(profiles) == 0 {
		p.Say("사용 가능한 프로필이 없습니다. 새 프로필을 만듭니다.")
		name, err := p.Ask("새 프로필 이름: ")
		if err != nil {
			return Profile{}, err
		}
		return Create(root, name)
	}

	options := make([]string, 0, len(profiles)+1)
	for _, pr := range profiles {
		options = append(options, pr.DisplayName)
	}
	options = append(options, "새 프로필 만들기")

	idx, err := console.ChooseIndex(p, "프로필 선택", options, 0)
	if err != nil {
		return Profile{}, err
	}
	if idx < len(profiles) {
		p.Say("프로필 선택됨: %s", profiles[idx].DisplayName)
		return profiles[idx], nil
	}
	name, err := p.Ask("새 프로필 이름: ")
	if err != nil {
		return Profile{}, err
	}
	return Create(root, name)
}
