package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestStore builds a hierarchy on disk and returns a store over it.
// files maps relative paths (e.g. "items/bk-001.yaml") to YAML content.
func newTestStore(t *testing.T, files map[string]string) *Store {
	t.Helper()
	root := t.TempDir()

	if _, ok := files[GlobalDefaultsFile]; !ok {
		files[GlobalDefaultsFile] = "{}\n"
	}
	for rel, content := range files {
		path := filepath.Join(root, rel)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}

	store, err := NewStore(root)
	require.NoError(t, err)
	return store
}

func TestResolverPriorityOrdering(t *testing.T) {
	store := newTestStore(t, map[string]string{
		GlobalDefaultsFile:      "us_discount: \"40\"\nbinding: paperback\n",
		"publishers/acme.yaml":  "us_discount: \"45\"\n",
		"items/bk-001.yaml":     "us_discount: \"55\"\n",
		"groups/acme-kids.yaml": "audience: children\n",
	})
	r := NewResolver(store)

	ctx := Context{ItemID: "bk-001", GroupName: "acme-kids", PublisherName: "acme"}

	v, entry, found, err := r.Get("us_discount", ctx, nil)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "55", v)
	assert.Equal(t, LevelItem, entry.Level)

	// Defined only at publisher level
	v, entry, found, err = r.Get("us_discount", Context{PublisherName: "acme"}, nil)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "45", v)
	assert.Equal(t, LevelPublisher, entry.Level)

	// Defined only globally
	v, entry, found, err = r.Get("binding", ctx, nil)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "paperback", v)
	assert.Equal(t, LevelGlobal, entry.Level)
}

func TestResolverFieldOverrideWins(t *testing.T) {
	store := newTestStore(t, map[string]string{
		GlobalDefaultsFile:  "us_discount: \"40\"\n",
		"items/bk-001.yaml": "us_discount: \"55\"\n",
	})
	r := NewResolver(store)

	ctx := Context{
		ItemID:         "bk-001",
		FieldOverrides: map[string]any{"us_discount": "60"},
	}

	v, entry, found, err := r.Get("us_discount", ctx, nil)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "60", v)
	assert.Equal(t, LevelFieldOverride, entry.Level)
}

func TestResolverEmptyValueStopsFallThrough(t *testing.T) {
	store := newTestStore(t, map[string]string{
		GlobalDefaultsFile:     "subtitle: Global Subtitle\n",
		"publishers/acme.yaml": "subtitle: \"\"\n",
	})
	r := NewResolver(store)

	// Defined-but-empty at publisher level halts fall-through
	v, entry, found, err := r.Get("subtitle", Context{PublisherName: "acme"}, "fallback")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "", v)
	assert.Equal(t, LevelPublisher, entry.Level)

	// Wholly absent at publisher level falls through to global
	v, _, found, err = r.Get("subtitle", Context{PublisherName: "other"}, "fallback")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "Global Subtitle", v)
}

func TestResolverDefaultWhenUndefined(t *testing.T) {
	store := newTestStore(t, map[string]string{})
	r := NewResolver(store)

	v, entry, found, err := r.Get("nonexistent", Context{}, "the-default")
	require.NoError(t, err)
	assert.False(t, found)
	assert.Equal(t, "the-default", v)
	assert.Equal(t, "default", entry.Source)
}

func TestResolverDescribe(t *testing.T) {
	store := newTestStore(t, map[string]string{
		GlobalDefaultsFile:     "us_discount: \"40\"\n",
		"publishers/acme.yaml": "us_discount: \"45\"\n",
		"items/bk-001.yaml":    "us_discount: \"55\"\n",
	})
	r := NewResolver(store)

	desc, err := r.Describe("us_discount", Context{
		ItemID:         "bk-001",
		PublisherName:  "acme",
		FieldOverrides: map[string]any{"us_discount": "60"},
	})
	require.NoError(t, err)
	require.NotNil(t, desc.Winner)
	assert.Equal(t, LevelFieldOverride, desc.Winner.Level)
	assert.Len(t, desc.Candidates, 4)
	assert.Equal(t, LevelItem, desc.Candidates[1].Level)
	assert.Equal(t, LevelPublisher, desc.Candidates[2].Level)
	assert.Equal(t, LevelGlobal, desc.Candidates[3].Level)
}

func TestResolverEffectiveMerge(t *testing.T) {
	store := newTestStore(t, map[string]string{
		GlobalDefaultsFile:     "binding: paperback\nterritory: WORLD\n",
		"publishers/acme.yaml": "binding: hardcover\n",
	})
	r := NewResolver(store)

	merged, err := r.Effective(Context{PublisherName: "acme"})
	require.NoError(t, err)
	assert.Equal(t, "hardcover", merged["binding"])
	assert.Equal(t, "WORLD", merged["territory"])
}

func TestResolverSetWithValidator(t *testing.T) {
	store := newTestStore(t, map[string]string{
		GlobalDefaultsFile: "us_discount: \"40\"\n",
	})
	validators := NewValidatorRegistry()
	validators.Register("us_discount", IntRange(0, 90))
	r := NewResolver(store, WithValidators(validators))

	// Accepted write updates the cache
	require.NoError(t, r.Set("us_discount", "50", LevelGlobal, Context{}, false))
	v, _, _, err := r.Get("us_discount", Context{}, nil)
	require.NoError(t, err)
	assert.Equal(t, "50", v)

	// Rejected write is a typed error and the value is not stored
	err = r.Set("us_discount", "150", LevelGlobal, Context{}, false)
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "us_discount", verr.Key)

	v, _, _, err = r.Get("us_discount", Context{}, nil)
	require.NoError(t, err)
	assert.Equal(t, "50", v)
}

func TestResolverSetRequiresEntity(t *testing.T) {
	store := newTestStore(t, map[string]string{})
	r := NewResolver(store)

	// An entity-scoped write with no entity in the context is rejected, not
	// silently dropped
	err := r.Set("us_discount", "45", LevelPublisher, Context{}, false)
	var terr *TargetError
	require.True(t, errors.As(err, &terr))
	assert.Equal(t, LevelPublisher, terr.Level)

	_, _, found, err := r.Get("us_discount", Context{PublisherName: "acme"}, nil)
	require.NoError(t, err)
	assert.False(t, found, "rejected write must not be readable anywhere")

	err = r.Set("us_discount", "45", LevelGroup, Context{}, false)
	require.True(t, errors.As(err, &terr))
	err = r.Set("us_discount", "45", LevelItem, Context{}, false)
	require.True(t, errors.As(err, &terr))

	// With the entity named, the write lands in the cache and resolves
	ctx := Context{PublisherName: "acme"}
	require.NoError(t, r.Set("us_discount", "45", LevelPublisher, ctx, false))
	v, entry, found, err := r.Get("us_discount", ctx, nil)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "45", v)
	assert.Equal(t, LevelPublisher, entry.Level)
}

func TestResolverSetPersists(t *testing.T) {
	store := newTestStore(t, map[string]string{
		GlobalDefaultsFile: "binding: paperback\n",
	})
	r := NewResolver(store)

	require.NoError(t, r.Set("territory", "US", LevelGlobal, Context{}, true))

	// A fresh store sees the persisted value
	reopened, err := NewStore(store.Root())
	require.NoError(t, err)
	v, _, found, err := NewResolver(reopened).Get("territory", Context{}, nil)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "US", v)
}

func TestStoreCorruptGlobalIsFatal(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, GlobalDefaultsFile), []byte(": not yaml ["), 0o644))

	_, err := NewStore(root)
	require.Error(t, err)
	var cerr *ConfigError
	assert.True(t, errors.As(err, &cerr))
}

func TestStoreMissingGlobalIsFatal(t *testing.T) {
	_, err := NewStore(t.TempDir())
	require.Error(t, err)
}

func TestStoreCorruptItemSurfacesOnLookup(t *testing.T) {
	store := newTestStore(t, map[string]string{
		"items/bad.yaml": "\t: bad",
	})
	r := NewResolver(store)

	_, _, _, err := r.Get("anything", Context{ItemID: "bad"}, nil)
	require.Error(t, err)
	var cerr *ConfigError
	assert.True(t, errors.As(err, &cerr))
}

func TestStoreSnapshotIsolation(t *testing.T) {
	store := newTestStore(t, map[string]string{
		GlobalDefaultsFile: "binding: paperback\n",
	})
	snap := store.Snapshot()

	// Mutate the live store after snapshotting
	require.NoError(t, NewResolver(store).Set("binding", "hardcover", LevelGlobal, Context{}, false))

	v, _, _, err := NewResolver(snap).Get("binding", Context{}, nil)
	require.NoError(t, err)
	assert.Equal(t, "paperback", v)

	v, _, _, err = NewResolver(store).Get("binding", Context{}, nil)
	require.NoError(t, err)
	assert.Equal(t, "hardcover", v)
}

func TestStoreReload(t *testing.T) {
	store := newTestStore(t, map[string]string{
		GlobalDefaultsFile: "binding: paperback\n",
	})

	require.NoError(t, os.WriteFile(filepath.Join(store.Root(), GlobalDefaultsFile), []byte("binding: hardcover\n"), 0o644))
	require.NoError(t, store.Reload())

	v, _, _, err := NewResolver(store).Get("binding", Context{}, nil)
	require.NoError(t, err)
	assert.Equal(t, "hardcover", v)
}

func TestStoreListItems(t *testing.T) {
	store := newTestStore(t, map[string]string{
		"items/bk-001.yaml": "title: A\n",
		"items/bk-002.yaml": "title: B\n",
	})

	ids, err := store.ListItems()
	require.NoError(t, err)
	assert.Equal(t, []string{"bk-001", "bk-002"}, ids)
}
