// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

package supervisor

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// UnitDescriptor names a worker and the executable + arguments that launch
// it, discovered from a YAML file in the configured unit directory.
type UnitDescriptor struct {
	Name    string   `koanf:"name"`
	Command string   `koanf:"command"`
	Args    []string `koanf:"args"`
}

// DiscoverUnits scans dir for *.yaml/*.yml unit descriptors and returns them
// sorted by name for deterministic startup ordering.
func DiscoverUnits(dir string) ([]UnitDescriptor, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("supervisor: read unit dir %s: %w", dir, err)
	}

	var units []UnitDescriptor
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if !strings.HasSuffix(name, ".yaml") && !strings.HasSuffix(name, ".yml") {
			continue
		}

		k := koanf.New(".")
		path := filepath.Join(dir, name)
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("supervisor: load unit %s: %w", path, err)
		}

		var unit UnitDescriptor
		if err := k.Unmarshal("", &unit); err != nil {
			return nil, fmt.Errorf("supervisor: parse unit %s: %w", path, err)
		}
		if unit.Name == "" {
			return nil, fmt.Errorf("supervisor: unit %s is missing a name", path)
		}
		if unit.Command == "" {
			return nil, fmt.Errorf("supervisor: unit %s is missing a command", path)
		}

		units = append(units, unit)
	}

	sort.Slice(units, func(i, j int) bool { return units[i].Name < units[j].Name })
	return units, nil
}
