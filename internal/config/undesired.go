package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/tagtidy/tagtidy/internal/canon"
)

// UndesiredStore is the project-local list of tags the user wants flagged
// for removal. Tags are kept canonical and the file is rewritten atomically,
// so a crash mid-save never leaves a truncated list.
type UndesiredStore struct {
	mu   sync.Mutex
	path string
	tags map[string]struct{}
}

type undesiredFile struct {
	Tags []string `json:"tags"`
}

// OpenUndesiredStore loads the list at path, treating a missing file as an
// empty list.
func OpenUndesiredStore(path string) (*UndesiredStore, error) {
	s := &UndesiredStore{path: path, tags: make(map[string]struct{})}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read undesired tags: %w", err)
	}

	var doc undesiredFile
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse undesired tags %s: %w", path, err)
	}
	for _, tag := range doc.Tags {
		if c := canon.Canonicalize(tag); c != "" {
			s.tags[c] = struct{}{}
		}
	}
	return s, nil
}

// Contains reports whether the canonical form of tag is on the list.
func (s *UndesiredStore) Contains(tag string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.tags[canon.Canonicalize(tag)]
	return ok
}

// Tags returns the list sorted.
func (s *UndesiredStore) Tags() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.tags))
	for tag := range s.tags {
		out = append(out, tag)
	}
	sort.Strings(out)
	return out
}

// Add puts tags on the list and saves. Reports whether anything changed.
func (s *UndesiredStore) Add(tags ...string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	changed := false
	for _, tag := range tags {
		c := canon.Canonicalize(tag)
		if c == "" {
			continue
		}
		if _, ok := s.tags[c]; !ok {
			s.tags[c] = struct{}{}
			changed = true
		}
	}
	if !changed {
		return false, nil
	}
	return true, s.save()
}

// Remove takes tags off the list and saves. Reports whether anything changed.
func (s *UndesiredStore) Remove(tags ...string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	changed := false
	for _, tag := range tags {
		c := canon.Canonicalize(tag)
		if _, ok := s.tags[c]; ok {
			delete(s.tags, c)
			changed = true
		}
	}
	if !changed {
		return false, nil
	}
	return true, s.save()
}

// save writes the list atomically: temp file in the same directory, fsync,
// then rename over the target. Caller holds the lock.
func (s *UndesiredStore) save() error {
	doc := undesiredFile{Tags: make([]string, 0, len(s.tags))}
	for tag := range s.tags {
		doc.Tags = append(doc.Tags, tag)
	}
	sort.Strings(doc.Tags)

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode undesired tags: %w", err)
	}
	data = append(data, '\n')

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, ".undesired-*.json")
	if err != nil {
		return fmt.Errorf("write undesired tags: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write undesired tags: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync undesired tags: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close undesired tags: %w", err)
	}
	return os.Rename(tmp.Name(), s.path)
}
