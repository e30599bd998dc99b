// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

// Package settingsstore holds the dynamic, bus-addressed Settings Document —
// the hot-reloadable tree served by the settings service at runtime. This is
// explicitly distinct from internal/config, which is the static bootstrap
// layer every binary loads once at process start before it can even dial the
// bus.
//
// The tree lives behind a single owning goroutine: every read and mutation
// is a closure sent over a channel and executed in strict arrival order,
// mirroring the fabric's "one logical event loop per service" concurrency
// model rather than protecting the tree with a mutex — the store also needs
// to serialize persistence (a write-through save after every mutation), and
// a channel gives that ordering for free.
package settingsstore

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
)

// Document is the settings tree. Leaves are scalars (string, bool, float64,
// or int); intermediate nodes are maps or slices decoded from JSON.
type Document map[string]any

// Store owns one Settings Document and serializes all access through a
// single goroutine.
type Store struct {
	dir    string
	file   string
	logger zerolog.Logger

	cmds chan func(Document)
	done chan struct{}

	tree Document
}

// New constructs a Store around an already-loaded document. Callers load
// the initial document with Load before constructing the Store.
func New(dir, file string, initial Document, logger zerolog.Logger) *Store {
	if initial == nil {
		initial = Document{}
	}
	s := &Store{
		dir:    dir,
		file:   file,
		logger: logger,
		cmds:   make(chan func(Document), 32),
		done:   make(chan struct{}),
		tree:   initial,
	}
	go s.run()
	return s
}

// run is the single goroutine that owns the tree. Every exported method
// funnels through here by sending a closure and waiting for it to complete.
func (s *Store) run() {
	defer close(s.done)
	for cmd := range s.cmds {
		cmd(s.tree)
	}
}

// Close stops the owning goroutine. No further operations may be issued
// after Close returns.
func (s *Store) Close() {
	close(s.cmds)
	<-s.done
}

// exec runs fn against the tree from the owning goroutine and blocks until
// it completes.
func (s *Store) exec(fn func(Document)) {
	ack := make(chan struct{})
	s.cmds <- func(tree Document) {
		fn(tree)
		close(ack)
	}
	<-ack
}

// All returns a deep copy of the whole document, safe for the caller to
// retain or mutate.
func (s *Store) All() Document {
	var out Document
	s.exec(func(tree Document) {
		out = cloneDocument(tree)
	})
	return out
}

// Subtree returns a deep copy of the value under the given top-level key,
// or an empty record if the key is absent. A map value comes back as a
// Document; maps nested inside it stay map[string]any.
func (s *Store) Subtree(key string) any {
	var out any
	s.exec(func(tree Document) {
		if m, isMap := tree[key].(map[string]any); isMap {
			out = cloneDocument(Document(m))
		} else if v, ok := tree[key]; ok {
			out = cloneValue(v)
		} else {
			out = Document{}
		}
	})
	return out
}

// UpdateScalar coerces raw from a string into int, float64, or string, then
// writes it at the dotted path. The target must either be absent or already
// a scalar leaf — replacing a subtree this way is rejected so an operator
// typo in a path can't silently wipe out a block of configuration. On
// success the document is persisted to disk before UpdateScalar returns.
func (s *Store) UpdateScalar(path, raw string) (any, error) {
	var (
		value any
		err   error
	)
	s.exec(func(tree Document) {
		value, err = setScalar(tree, path, raw)
		if err == nil {
			err = save(s.dir, s.file, tree)
		}
	})
	return value, err
}

// UpdateBlock replaces the node at the dotted path wholesale with value,
// persisting the document before returning.
func (s *Store) UpdateBlock(path string, value any) error {
	var err error
	s.exec(func(tree Document) {
		err = setBlock(tree, path, value)
		if err == nil {
			err = save(s.dir, s.file, tree)
		}
	})
	return err
}

// Replace atomically swaps the entire in-memory document (used by Import
// and LoadFromFile after the backup/reload dance has already happened on
// disk).
func (s *Store) Replace(doc Document) {
	s.exec(func(tree Document) {
		for k := range tree {
			delete(tree, k)
		}
		for k, v := range doc {
			tree[k] = v
		}
	})
}

func cloneDocument(d Document) Document {
	out := make(Document, len(d))
	for k, v := range d {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case Document:
		return cloneDocument(t)
	case map[string]any:
		return map[string]any(cloneDocument(Document(t)))
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = cloneValue(e)
		}
		return out
	default:
		return t
	}
}

func isScalar(v any) bool {
	switch v.(type) {
	case nil, bool, string, float64, int, int64:
		return true
	default:
		return false
	}
}

// coerceScalar mirrors the original document's update_setting coercion: try
// integer, then float, else keep the raw string.
func coerceScalar(raw string) any {
	if i, err := strconv.Atoi(raw); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		return f
	}
	return raw
}

// resolveParent walks segments through tree and returns the direct
// container of the final segment (a map[string]any or []any) plus the key
// (string or int) identifying the target within it. List segments are
// parsed as integer indices.
func resolveParent(tree Document, segments []string) (container any, key any, err error) {
	if len(segments) == 0 {
		return nil, nil, fmt.Errorf("settingsstore: empty path")
	}

	var cur any = tree
	for i, seg := range segments {
		last := i == len(segments)-1

		switch c := cur.(type) {
		case Document:
			if last {
				return c, seg, nil
			}
			next, ok := c[seg]
			if !ok {
				return nil, nil, fmt.Errorf("settingsstore: path segment %q not found", seg)
			}
			cur = next

		case map[string]any:
			if last {
				return Document(c), seg, nil
			}
			next, ok := c[seg]
			if !ok {
				return nil, nil, fmt.Errorf("settingsstore: path segment %q not found", seg)
			}
			cur = next

		case []any:
			idx, convErr := strconv.Atoi(seg)
			if convErr != nil {
				return nil, nil, fmt.Errorf("settingsstore: expected list index, got %q", seg)
			}
			if idx < 0 || idx >= len(c) {
				return nil, nil, fmt.Errorf("settingsstore: list index %d out of range", idx)
			}
			if last {
				return c, idx, nil
			}
			cur = c[idx]

		default:
			return nil, nil, fmt.Errorf("settingsstore: cannot traverse through scalar at segment %q", seg)
		}
	}

	return nil, nil, fmt.Errorf("settingsstore: empty path")
}

func setScalar(tree Document, path, raw string) (any, error) {
	segments := strings.Split(path, ".")
	container, key, err := resolveParent(tree, segments)
	if err != nil {
		return nil, err
	}

	value := coerceScalar(raw)

	switch c := container.(type) {
	case Document:
		k := key.(string)
		if existing, ok := c[k]; ok && !isScalar(existing) {
			return nil, fmt.Errorf("settingsstore: %s is not a scalar leaf", path)
		}
		c[k] = value
	case []any:
		idx := key.(int)
		if !isScalar(c[idx]) {
			return nil, fmt.Errorf("settingsstore: %s is not a scalar leaf", path)
		}
		c[idx] = value
	default:
		return nil, fmt.Errorf("settingsstore: %s has an unsupported container type", path)
	}

	return value, nil
}

func setBlock(tree Document, path string, value any) error {
	segments := strings.Split(path, ".")
	container, key, err := resolveParent(tree, segments)
	if err != nil {
		return err
	}

	switch c := container.(type) {
	case Document:
		c[key.(string)] = value
	case []any:
		c[key.(int)] = value
	default:
		return fmt.Errorf("settingsstore: %s has an unsupported container type", path)
	}

	return nil
}
