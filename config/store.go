package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"
)

const (
	// GlobalDefaultsFile is the global defaults file name under the config root.
	GlobalDefaultsFile = "global_defaults.yaml"
	// PublishersDir holds per-publisher configuration files.
	PublishersDir = "publishers"
	// GroupsDir holds per-group (imprint) configuration files.
	GroupsDir = "groups"
	// ItemsDir holds per-item configuration files.
	ItemsDir = "items"
)

// ConfigError reports a malformed or unreadable configuration file.
type ConfigError struct {
	Path string
	Err  error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config file %s: %v", e.Path, e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// levelMap is one loaded configuration file: its flat key/value map plus
// origin metadata for Entry construction.
type levelMap struct {
	values  map[string]any
	path    string
	modTime time.Time
}

// Store loads and caches the five-level configuration hierarchy from a config
// root directory. The global defaults load eagerly and fail hard; entity
// files load lazily and cache for the store's lifetime until Reload.
type Store struct {
	root   string
	logger *slog.Logger

	mu         sync.RWMutex
	global     *levelMap
	publishers map[string]*levelMap
	groups     map[string]*levelMap
	items      map[string]*levelMap

	// writeMu serializes writes per backing file so concurrent Set calls
	// cannot interleave on disk.
	writeMu sync.Mutex

	watcher *fsnotify.Watcher
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithLogger sets the store's logger.
func WithLogger(logger *slog.Logger) StoreOption {
	return func(s *Store) {
		s.logger = logger
	}
}

// NewStore creates a store rooted at dir and eagerly loads the global
// defaults. A missing or malformed global defaults file is fatal: no partial
// configuration is ever used silently.
func NewStore(dir string, opts ...StoreOption) (*Store, error) {
	s := &Store{
		root:       dir,
		logger:     slog.Default(),
		publishers: make(map[string]*levelMap),
		groups:     make(map[string]*levelMap),
		items:      make(map[string]*levelMap),
	}
	for _, opt := range opts {
		opt(s)
	}

	global, err := loadLevelFile(filepath.Join(dir, GlobalDefaultsFile))
	if err != nil {
		return nil, fmt.Errorf("load global defaults: %w", err)
	}
	if global == nil {
		return nil, &ConfigError{Path: filepath.Join(dir, GlobalDefaultsFile), Err: errors.New("file not found")}
	}
	s.global = global
	s.logger.Debug("Loaded global defaults", "path", global.path, "keys", len(global.values))

	return s, nil
}

// Root returns the config root directory.
func (s *Store) Root() string {
	return s.root
}

// Global returns the global defaults map.
func (s *Store) Global() *levelMap {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.global
}

// Publisher returns the publisher-level map for name, loading and caching it
// on first use. A missing file yields an empty map (nothing defined at this
// level); a malformed file is a ConfigError.
func (s *Store) Publisher(name string) (*levelMap, error) {
	return s.entity(&s.publishers, PublishersDir, name)
}

// Group returns the group-level map for name.
func (s *Store) Group(name string) (*levelMap, error) {
	return s.entity(&s.groups, GroupsDir, name)
}

// Item returns the item-level map for id.
func (s *Store) Item(id string) (*levelMap, error) {
	return s.entity(&s.items, ItemsDir, id)
}

func (s *Store) entity(cache *map[string]*levelMap, dir, name string) (*levelMap, error) {
	if name == "" {
		return emptyLevelMap(), nil
	}

	s.mu.RLock()
	lm, ok := (*cache)[name]
	s.mu.RUnlock()
	if ok {
		return lm, nil
	}

	loaded, err := loadLevelFile(filepath.Join(s.root, dir, name+".yaml"))
	if err != nil {
		return nil, err
	}
	if loaded == nil {
		loaded = emptyLevelMap()
	}

	s.mu.Lock()
	(*cache)[name] = loaded
	s.mu.Unlock()
	return loaded, nil
}

// Reload discards all cached entity maps and reloads the global defaults.
// On failure the previous state is kept.
func (s *Store) Reload() error {
	global, err := loadLevelFile(filepath.Join(s.root, GlobalDefaultsFile))
	if err != nil {
		return fmt.Errorf("reload global defaults: %w", err)
	}
	if global == nil {
		return &ConfigError{Path: filepath.Join(s.root, GlobalDefaultsFile), Err: errors.New("file not found")}
	}

	s.mu.Lock()
	s.global = global
	s.publishers = make(map[string]*levelMap)
	s.groups = make(map[string]*levelMap)
	s.items = make(map[string]*levelMap)
	s.mu.Unlock()

	s.logger.Info("Reloaded configuration", "root", s.root)
	return nil
}

// Watch starts an fsnotify watcher on the config root that triggers Reload on
// any write or create event. Close stops it.
func (s *Store) Watch() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}

	dirs := []string{
		s.root,
		filepath.Join(s.root, PublishersDir),
		filepath.Join(s.root, GroupsDir),
		filepath.Join(s.root, ItemsDir),
	}
	for _, d := range dirs {
		if _, statErr := os.Stat(d); statErr != nil {
			continue
		}
		if addErr := watcher.Add(d); addErr != nil {
			watcher.Close()
			return fmt.Errorf("watch %s: %w", d, addErr)
		}
	}

	s.watcher = watcher
	go func() {
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove) == 0 {
					continue
				}
				if !strings.HasSuffix(event.Name, ".yaml") {
					continue
				}
				s.logger.Debug("Config change detected", "path", event.Name, "op", event.Op.String())
				if err := s.Reload(); err != nil {
					s.logger.Warn("Config reload failed", "error", err)
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				s.logger.Warn("Config watcher error", "error", err)
			}
		}
	}()

	return nil
}

// Close stops the watcher, if running.
func (s *Store) Close() error {
	if s.watcher != nil {
		return s.watcher.Close()
	}
	return nil
}

// ListItems returns the IDs of all item-level configuration files.
func (s *Store) ListItems() ([]string, error) {
	return s.listEntities(ItemsDir)
}

// ListPublishers returns the names of all publisher-level files.
func (s *Store) ListPublishers() ([]string, error) {
	return s.listEntities(PublishersDir)
}

// ListGroups returns the names of all group-level files.
func (s *Store) ListGroups() ([]string, error) {
	return s.listEntities(GroupsDir)
}

func (s *Store) listEntities(dir string) ([]string, error) {
	pattern := filepath.Join(s.root, dir, "**", "*.yaml")
	matches, err := doublestar.FilepathGlob(pattern)
	if err != nil {
		return nil, fmt.Errorf("glob %s: %w", pattern, err)
	}

	names := make([]string, 0, len(matches))
	for _, m := range matches {
		base := filepath.Base(m)
		names = append(names, strings.TrimSuffix(base, ".yaml"))
	}
	sort.Strings(names)
	return names, nil
}

// setValue writes a key into the cached map for a level and optionally
// persists the whole map back to its file. Writes are serialized.
func (s *Store) setValue(level Level, entity, key string, value any, persist bool) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	var lm *levelMap
	var err error
	switch level {
	case LevelGlobal:
		lm = s.Global()
	case LevelPublisher:
		lm, err = s.Publisher(entity)
	case LevelGroup:
		lm, err = s.Group(entity)
	case LevelItem:
		lm, err = s.Item(entity)
	default:
		return fmt.Errorf("level %s is not file-backed", level)
	}
	if err != nil {
		return err
	}

	s.mu.Lock()
	lm.values[key] = value
	if lm.path == "" {
		lm.path = s.pathFor(level, entity)
	}
	s.mu.Unlock()

	if !persist {
		return nil
	}
	return s.persist(lm)
}

func (s *Store) pathFor(level Level, entity string) string {
	switch level {
	case LevelGlobal:
		return filepath.Join(s.root, GlobalDefaultsFile)
	case LevelPublisher:
		return filepath.Join(s.root, PublishersDir, entity+".yaml")
	case LevelGroup:
		return filepath.Join(s.root, GroupsDir, entity+".yaml")
	case LevelItem:
		return filepath.Join(s.root, ItemsDir, entity+".yaml")
	default:
		return ""
	}
}

func (s *Store) persist(lm *levelMap) error {
	s.mu.RLock()
	data, err := yaml.Marshal(lm.values)
	path := lm.path
	s.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}

	s.mu.Lock()
	lm.modTime = time.Now()
	s.mu.Unlock()
	return nil
}

// Snapshot returns a deep copy of the store's current state. Batch runs take
// a snapshot before starting so per-item resolution never races a reload.
func (s *Store) Snapshot() *Store {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := &Store{
		root:       s.root,
		logger:     s.logger,
		global:     s.global.clone(),
		publishers: cloneLevelMaps(s.publishers),
		groups:     cloneLevelMaps(s.groups),
		items:      cloneLevelMaps(s.items),
	}
	return snap
}

func cloneLevelMaps(in map[string]*levelMap) map[string]*levelMap {
	out := make(map[string]*levelMap, len(in))
	for k, v := range in {
		out[k] = v.clone()
	}
	return out
}

func (lm *levelMap) clone() *levelMap {
	if lm == nil {
		return nil
	}
	values := make(map[string]any, len(lm.values))
	for k, v := range lm.values {
		values[k] = v
	}
	return &levelMap{values: values, path: lm.path, modTime: lm.modTime}
}

// Values returns the raw key/value map for the level file.
func (lm *levelMap) Values() map[string]any {
	return lm.values
}

// Defines reports whether key exists in this level's map. Presence with an
// empty value still counts as defined and stops fall-through.
func (lm *levelMap) Defines(key string) bool {
	if lm == nil {
		return false
	}
	_, ok := lm.values[key]
	return ok
}

// loadLevelFile reads one YAML config file. A missing file returns (nil, nil);
// a malformed file returns a ConfigError.
func loadLevelFile(path string) (*levelMap, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, &ConfigError{Path: path, Err: err}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &ConfigError{Path: path, Err: err}
	}

	values := make(map[string]any)
	if err := yaml.Unmarshal(data, &values); err != nil {
		return nil, &ConfigError{Path: path, Err: err}
	}

	return &levelMap{values: values, path: path, modTime: info.ModTime()}, nil
}

func emptyLevelMap() *levelMap {
	return &levelMap{values: make(map[string]any)}
}
