package config

import "time"

// Level is one tier in the configuration priority hierarchy. Lower values win:
// a field override beats an item-level value, which beats group, publisher,
// and global defaults in that order.
type Level int

const (
	// LevelFieldOverride is a caller-supplied override for one invocation.
	LevelFieldOverride Level = iota
	// LevelItem is item-specific configuration (config/items/<item_id>).
	LevelItem
	// LevelGroup is imprint/group configuration (config/groups/<name>).
	LevelGroup
	// LevelPublisher is publisher configuration (config/publishers/<name>).
	LevelPublisher
	// LevelGlobal is the global defaults file.
	LevelGlobal
)

// Levels returns all levels in priority order, highest first.
func Levels() []Level {
	return []Level{LevelFieldOverride, LevelItem, LevelGroup, LevelPublisher, LevelGlobal}
}

// String returns the level's name.
func (l Level) String() string {
	switch l {
	case LevelFieldOverride:
		return "field_override"
	case LevelItem:
		return "item"
	case LevelGroup:
		return "group"
	case LevelPublisher:
		return "publisher"
	case LevelGlobal:
		return "global"
	default:
		return "unknown"
	}
}

// Entry is one resolved configuration value with its origin.
type Entry struct {
	// Key is the configuration key the entry answers.
	Key string `json:"key"`

	// Value is the raw value as loaded from YAML (scalar or nested map).
	Value any `json:"value"`

	// Level is the tier the value came from.
	Level Level `json:"level"`

	// Source identifies the origin: a file path for file-backed levels,
	// "caller" for field overrides, "default" for caller-supplied defaults.
	Source string `json:"source"`

	// Description is a human-readable note about the origin.
	Description string `json:"description,omitempty"`

	// LastModified is the backing file's modification time, when known.
	LastModified time.Time `json:"last_modified,omitzero"`
}

// Context selects which publisher, group, and item apply to one resolution
// request. It is constructed per request and never mutated afterwards.
type Context struct {
	// ItemID selects the item-level file, if any.
	ItemID string

	// GroupName selects the group (imprint) level file, if any.
	GroupName string

	// PublisherName selects the publisher-level file, if any.
	PublisherName string

	// FieldOverrides are caller-supplied values that win over every
	// file-based level.
	FieldOverrides map[string]any
}
