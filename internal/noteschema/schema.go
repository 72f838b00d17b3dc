// Package noteschema loads the external note-schema configuration consumed
// by the workflow engine: for a tag set, a list of required or optional note
// entries plus a hasReviewPhase predicate. It does a bespoke viper-driven
// YAML walk rather than struct-tag unmarshalling, since the schema's
// tag-keyed sections don't map cleanly onto a single static type, and adds
// fsnotify-driven hot reload so a running daemon picks up schema edits
// without a restart.
package noteschema

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"

	"github.com/workgraph/core/internal/types"
)

// Source resolves a tag set to the note schema that governs it.
type Source interface {
	SchemaForTags(tags []string) (*types.NoteSchema, error)
}

// Store is a Source backed by a YAML file of the form:
//
//	schemas:
//	  - tags: [backend, api]
//	    entries:
//	      - key: acceptance-criteria
//	        role: work
//	        required: true
//	      - key: post-mortem
//	        role: review
//	        required: true
//
// The first schema whose tag set is a subset of the item's tags wins;
// untagged items, or items matching no schema, get a nil schema (gates pass
// vacuously).
type Store struct {
	path string
	log  *slog.Logger

	mu      sync.RWMutex
	schemas []taggedSchema
}

type taggedSchema struct {
	tags   []string
	schema types.NoteSchema
}

// Load reads path and returns a Store watching it for changes. A missing
// file is not an error: it yields a Store with no schemas.
func Load(path string, log *slog.Logger) (*Store, error) {
	if log == nil {
		log = slog.Default()
	}
	s := &Store{path: path, log: log}
	if err := s.reload(); err != nil {
		return nil, err
	}
	s.watch()
	return s, nil
}

func (s *Store) reload() error {
	if _, err := os.Stat(s.path); os.IsNotExist(err) {
		s.mu.Lock()
		s.schemas = nil
		s.mu.Unlock()
		return nil
	}

	v := viper.New()
	v.SetConfigFile(s.path)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("reading note schema config: %w", err)
	}

	raw, ok := v.Get("schemas").([]any)
	if !ok {
		s.mu.Lock()
		s.schemas = nil
		s.mu.Unlock()
		return nil
	}

	parsed := make([]taggedSchema, 0, len(raw))
	for i, item := range raw {
		m, ok := item.(map[string]any)
		if !ok {
			return fmt.Errorf("schemas[%d]: expected map, got %T", i, item)
		}
		ts, err := parseTaggedSchema(i, m)
		if err != nil {
			return err
		}
		parsed = append(parsed, ts)
	}

	s.mu.Lock()
	s.schemas = parsed
	s.mu.Unlock()
	return nil
}

func parseTaggedSchema(i int, m map[string]any) (taggedSchema, error) {
	var ts taggedSchema

	tagsRaw, ok := m["tags"].([]any)
	if !ok {
		return ts, fmt.Errorf("schemas[%d]: missing or invalid 'tags'", i)
	}
	for _, t := range tagsRaw {
		s, ok := t.(string)
		if !ok {
			return ts, fmt.Errorf("schemas[%d]: tags must be strings", i)
		}
		ts.tags = append(ts.tags, strings.ToLower(strings.TrimSpace(s)))
	}

	entriesRaw, _ := m["entries"].([]any)
	for j, e := range entriesRaw {
		em, ok := e.(map[string]any)
		if !ok {
			return ts, fmt.Errorf("schemas[%d].entries[%d]: expected map", i, j)
		}
		entry := types.SchemaEntry{
			Key:         strOf(em["key"]),
			Role:        types.NoteRole(strOf(em["role"])),
			Required:    boolOf(em["required"]),
			Description: strOf(em["description"]),
			Guidance:    strOf(em["guidance"]),
		}
		if entry.Key == "" {
			return ts, fmt.Errorf("schemas[%d].entries[%d]: missing 'key'", i, j)
		}
		if !entry.Role.IsValid() {
			return ts, fmt.Errorf("schemas[%d].entries[%d]: invalid role %q", i, j, em["role"])
		}
		ts.schema.Entries = append(ts.schema.Entries, entry)
	}
	return ts, nil
}

func strOf(v any) string {
	s, _ := v.(string)
	return s
}

func boolOf(v any) bool {
	b, _ := v.(bool)
	return b
}

// watch installs an fsnotify watcher on the config file's directory and
// reloads on any write, logging (not failing) a bad edit so a daemon never
// crashes on an operator's typo.
func (s *Store) watch() {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		s.log.Warn("note schema hot-reload disabled", "error", err)
		return
	}
	dir := s.path[:strings.LastIndex(s.path, "/")+1]
	if dir == "" {
		dir = "."
	}
	if err := w.Add(dir); err != nil {
		s.log.Warn("note schema hot-reload disabled", "error", err)
		_ = w.Close()
		return
	}
	go func() {
		for {
			select {
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if ev.Name != s.path || ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				if err := s.reload(); err != nil {
					s.log.Warn("note schema reload failed", "error", err)
				} else {
					s.log.Info("note schema reloaded", "path", s.path)
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				s.log.Warn("note schema watcher error", "error", err)
			}
		}
	}()
}

// SchemaForTags returns the first schema whose tags are all present in tags,
// or nil if none match.
func (s *Store) SchemaForTags(tags []string) (*types.NoteSchema, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	set := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		set[t] = struct{}{}
	}

	for _, ts := range s.schemas {
		if subsetOf(ts.tags, set) {
			schema := ts.schema
			return &schema, nil
		}
	}
	return nil, nil
}

func subsetOf(required []string, have map[string]struct{}) bool {
	if len(required) == 0 {
		return false
	}
	for _, t := range required {
		if _, ok := have[t]; !ok {
			return false
		}
	}
	return true
}
