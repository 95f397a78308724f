package query

import (
	"embed"
	"log/slog"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"
)

//go:embed data/synonyms.yaml data/stopwords.yaml
var dataFS embed.FS

type synonymFile struct {
	Groups [][]string `yaml:"groups"`
}

type stopwordFile struct {
	Words []string `yaml:"words"`
}

// SynonymTable is the keyword-expansion table and stop-word set used by
// Parse. Safe for concurrent reads; merging groups (addGroups, reached
// through MergeOverrideFile) takes a write lock so an
// on-disk override can be hot-reloaded without disrupting in-flight
// parses.
type SynonymTable struct {
	mu        sync.RWMutex
	synonyms  map[string]map[string]struct{}
	stopWords map[string]struct{}
}

// DefaultSynonymTable loads the embedded groups/stop-words bundled at
// build time.
func DefaultSynonymTable() (*SynonymTable, error) {
	t := &SynonymTable{
		synonyms:  map[string]map[string]struct{}{},
		stopWords: map[string]struct{}{},
	}

	var syn synonymFile
	raw, err := dataFS.ReadFile("data/synonyms.yaml")
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(raw, &syn); err != nil {
		return nil, err
	}
	t.addGroups(syn.Groups)

	var stop stopwordFile
	raw, err = dataFS.ReadFile("data/stopwords.yaml")
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(raw, &stop); err != nil {
		return nil, err
	}
	for _, w := range stop.Words {
		t.stopWords[strings.ToLower(w)] = struct{}{}
	}

	return t, nil
}

func (t *SynonymTable) addGroups(groups [][]string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, group := range groups {
		members := map[string]struct{}{}
		for _, w := range group {
			members[strings.ToLower(w)] = struct{}{}
		}
		for w := range members {
			if t.synonyms[w] == nil {
				t.synonyms[w] = map[string]struct{}{}
			}
			for other := range members {
				if other == w {
					continue
				}
				t.synonyms[w][other] = struct{}{}
			}
		}
	}
}

// MergeOverrideFile reads additional synonym groups from an on-disk YAML
// file (same shape as data/synonyms.yaml) and merges them in.
func (t *SynonymTable) MergeOverrideFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var syn synonymFile
	if err := yaml.Unmarshal(raw, &syn); err != nil {
		return err
	}
	t.addGroups(syn.Groups)
	return nil
}

// Expansions returns keyword's synonyms, sorted for determinism.
func (t *SynonymTable) Expansions(keyword string) []string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	members := t.synonyms[strings.ToLower(keyword)]
	if len(members) == 0 {
		return nil
	}
	out := make([]string, 0, len(members))
	for m := range members {
		out = append(out, m)
	}
	sort.Strings(out)
	return out
}

// IsStopWord reports whether word (case-insensitive) is filtered from
// keyword extraction.
func (t *SynonymTable) IsStopWord(word string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	_, ok := t.stopWords[strings.ToLower(word)]
	return ok
}

// WatchOverrideFile reloads path into table whenever it changes on disk,
// so an operator can extend the synonym table without recompiling. The
// returned watcher must be closed by the caller to stop watching.
func WatchOverrideFile(table *SynonymTable, path string, logger *slog.Logger) (*fsnotify.Watcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := watcher.Add(path); err != nil {
		watcher.Close()
		return nil, err
	}

	go func() {
		for event := range watcher.Events {
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if err := table.MergeOverrideFile(path); err != nil && logger != nil {
				logger.Warn("synonym override reload failed", "path", path, "error", err)
			}
		}
	}()

	return watcher, nil
}
