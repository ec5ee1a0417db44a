package profile

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"hanapilot/internal/console"
)

func mkProfile(t *testing.T, root, name string, withDefault bool) {
	t.Helper()
	dir := filepath.Join(root, name)
	if withDefault {
		dir = filepath.Join(dir, "Default")
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatal(err)
	}
}

func TestListFiltersNonProfiles(t *testing.T) {
	root := t.TempDir()
	mkProfile(t, root, "google_office", true)
	mkProfile(t, root, "google_empty", false)    // no Default/Profile* inside
	mkProfile(t, root, "unmanaged", true)        // missing prefix
	mkProfile(t, root, "google_second", false)
	mkProfile(t, root, filepath.Join("google_second", "Profile 1"), false)

	profiles, err := List(root)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	var names []string
	for _, p := range profiles {
		names = append(names, p.DisplayName)
	}
	got := strings.Join(names, ",")
	if got != "office,second" {
		t.Errorf("List = %q, want office,second", got)
	}
}

func TestListMissingRoot(t *testing.T) {
	profiles, err := List(filepath.Join(t.TempDir(), "nope"))
	if err != nil || profiles != nil {
		t.Errorf("List on missing root = %v, %v; want nil, nil", profiles, err)
	}
}

func TestCreate(t *testing.T) {
	root := t.TempDir()
	p, err := Create(root, "fresh")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if p.Name != "google_fresh" || p.DisplayName != "fresh" {
		t.Errorf("unexpected profile: %+v", p)
	}
	if info, err := os.Stat(filepath.Join(p.Path, "Default")); err != nil || !info.IsDir() {
		t.Error("Default subdirectory not created")
	}

	if _, err := Create(root, "fresh"); err == nil {
		t.Error("duplicate Create should fail")
	}
	if _, err := Create(root, "  "); err == nil {
		t.Error("blank name should fail")
	}
}

func TestSelectExisting(t *testing.T) {
	root := t.TempDir()
	mkProfile(t, root, "google_a", true)
	mkProfile(t, root, "google_b", true)

	pr := console.New(strings.NewReader("2\n"), &bytes.Buffer{})
	p, err := Select(pr, root)
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if p.DisplayName != "b" {
		t.Errorf("Select = %q, want b", p.DisplayName)
	}
}

func TestArchiveAndActivate(t *testing.T) {
	root := t.TempDir()
	mkProfile(t, root, "google_office", true)

	profiles, err := List(root)
	if err != nil || len(profiles) != 1 {
		t.Fatalf("List = %v, %v", profiles, err)
	}

	if err := ArchiveByName(root, "office"); err != nil {
		t.Fatalf("ArchiveByName: %v", err)
	}
	if got, _ := List(root); len(got) != 0 {
		t.Error("archived profile still enumerates")
	}
	archived, err := ListArchived(root)
	if err != nil || len(archived) != 1 || archived[0].DisplayName != "office" {
		t.Fatalf("ListArchived = %v, %v", archived, err)
	}

	if err := ArchiveByName(root, "office"); err == nil {
		t.Error("ArchiveByName on an already-archived name should fail")
	}

	p, err := Activate(root, "office")
	if err != nil {
		t.Fatalf("Activate: %v", err)
	}
	if p.Name != "google_office" {
		t.Errorf("activated name = %q", p.Name)
	}
	if got, _ := List(root); len(got) != 1 {
		t.Error("activated profile does not enumerate")
	}
}

func TestSelectCreatesWhenEmpty(t *testing.T) {
	root := t.TempDir()
	pr := console.New(strings.NewReader("newone\n"), &bytes.Buffer{})
	p, err := Select(pr, root)
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if p.DisplayName != "newone" {
		t.Errorf("Select = %q, want newone", p.DisplayName)
	}
}
