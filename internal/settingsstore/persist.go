// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

package settingsstore

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	json "github.com/goccy/go-json"
)

// Load reads the settings document from dir/file. A missing file is not an
// error — it returns an empty Document so a fresh install can start with no
// configuration at all.
func Load(dir, file string) (Document, error) {
	return loadPath(filepath.Join(dir, file))
}

// loadPath reads and parses a settings document from an arbitrary path
// already validated by the caller (see ResolveImportPath).
func loadPath(path string) (Document, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return Document{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("settingsstore: read %s: %w", path, err)
	}

	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("settingsstore: parse %s: %w", path, err)
	}
	return doc, nil
}

// save writes doc to dir/file via a temp-file-plus-rename sequence so a
// crash mid-write never leaves a truncated or corrupted document on disk —
// the original implementation's bare json.dump has no such protection.
func save(dir, file string, doc Document) error {
	path := filepath.Join(dir, file)

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("settingsstore: marshal: %w", err)
	}

	tmp, err := os.CreateTemp(dir, file+".tmp-*")
	if err != nil {
		return fmt.Errorf("settingsstore: create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("settingsstore: write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("settingsstore: sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("settingsstore: close temp file: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("settingsstore: rename temp file into place: %w", err)
	}

	return nil
}

// Backup renames the current settings file to
// <name>.<UTC-timestamp>.bak, returning the backup's filename. A missing
// source file is not an error — there is nothing to protect.
func Backup(dir, file string) (string, error) {
	path := filepath.Join(dir, file)

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return "", nil
	}

	stamp := time.Now().UTC().Format("20060102T150405Z")
	backupName := fmt.Sprintf("%s.%s.bak", file, stamp)
	backupPath := filepath.Join(dir, backupName)

	if err := os.Rename(path, backupPath); err != nil {
		return "", fmt.Errorf("settingsstore: backup %s: %w", path, err)
	}
	return backupName, nil
}

// ListConfigs returns the .json files present in dir, sorted by name.
func ListConfigs(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("settingsstore: read dir %s: %w", dir, err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if strings.HasSuffix(e.Name(), ".json") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

// ResolveImportPath restricts filename to a plain .json file inside dir,
// rejecting any path-traversal attempt (leading slash, "..", or a nested
// directory separator).
func ResolveImportPath(dir, filename string) (string, error) {
	if filename == "" || strings.Contains(filename, "..") || strings.ContainsAny(filename, `/\`) {
		return "", fmt.Errorf("settingsstore: invalid filename %q", filename)
	}
	if !strings.HasSuffix(filename, ".json") {
		return "", fmt.Errorf("settingsstore: %q is not a .json file", filename)
	}
	return filepath.Join(dir, filename), nil
}
