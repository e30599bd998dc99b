// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

package settingsstore

import (
	"os"
	"path/filepath"
	"testing"
)

func TestSaveAndLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	doc := Document{"vehicle": map[string]any{"name": "excavator-1"}}

	if err := save(dir, "settings.json", doc); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := Load(dir, "settings.json")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got["vehicle"].(map[string]any)["name"] != "excavator-1" {
		t.Errorf("unexpected round-tripped document: %#v", got)
	}
}

func TestLoadMissingFileReturnsEmptyDocument(t *testing.T) {
	dir := t.TempDir()

	got, err := Load(dir, "does-not-exist.json")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("expected empty document, got %#v", got)
	}
}

func TestSaveLeavesNoTempFileBehind(t *testing.T) {
	dir := t.TempDir()
	if err := save(dir, "settings.json", Document{"a": 1}); err != nil {
		t.Fatalf("save: %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(entries) != 1 || entries[0].Name() != "settings.json" {
		t.Errorf("expected exactly settings.json in dir, got %v", entries)
	}
}

func TestBackupRenamesWithTimestampSuffix(t *testing.T) {
	dir := t.TempDir()
	if err := save(dir, "settings.json", Document{"a": 1}); err != nil {
		t.Fatalf("save: %v", err)
	}

	name, err := Backup(dir, "settings.json")
	if err != nil {
		t.Fatalf("Backup: %v", err)
	}
	if name == "" {
		t.Fatal("expected non-empty backup filename")
	}

	if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
		t.Errorf("expected backup file to exist: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "settings.json")); !os.IsNotExist(err) {
		t.Error("expected original settings.json to be gone after backup")
	}
}

func TestBackupMissingFileIsNoop(t *testing.T) {
	dir := t.TempDir()

	name, err := Backup(dir, "settings.json")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if name != "" {
		t.Errorf("expected empty backup name when source is absent, got %q", name)
	}
}

func TestListConfigsFiltersJSONOnly(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"a.json", "b.json", "c.txt", "d.bak"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("{}"), 0o600); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}

	got, err := ListConfigs(dir)
	if err != nil {
		t.Fatalf("ListConfigs: %v", err)
	}
	want := []string{"a.json", "b.json"}
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("ListConfigs = %v, want %v", got, want)
	}
}

func TestResolveImportPathRejectsTraversal(t *testing.T) {
	dir := t.TempDir()

	if _, err := ResolveImportPath(dir, "../etc/passwd.json"); err == nil {
		t.Error("expected rejection of path traversal")
	}
	if _, err := ResolveImportPath(dir, "sub/dir.json"); err == nil {
		t.Error("expected rejection of nested path separator")
	}
	if _, err := ResolveImportPath(dir, "config.txt"); err == nil {
		t.Error("expected rejection of non-.json extension")
	}
}

func TestResolveImportPathAcceptsPlainFilename(t *testing.T) {
	dir := t.TempDir()

	path, err := ResolveImportPath(dir, "backup.json")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if filepath.Dir(path) != dir {
		t.Errorf("expected resolved path inside dir, got %s", path)
	}
}
