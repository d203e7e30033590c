package fallback

import (
	"database/sql"
	"fmt"
)

func ensureSeedSchema(db *sql.DB) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id TEXT PRIMARY KEY,
			email TEXT NOT NULL UNIQUE,
			password TEXT NOT NULL,
			display_name TEXT NOT NULL,
			avatar_initial TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS communities (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			description TEXT NOT NULL,
			icon TEXT NOT NULL,
			member_count INTEGER DEFAULT 0,
			created_at TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS community_members (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			community_id TEXT NOT NULL,
			is_starred INTEGER DEFAULT 0,
			joined_at TEXT NOT NULL,
			UNIQUE(user_id, community_id)
		)`,
		`CREATE TABLE IF NOT EXISTS channels (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			kind TEXT NOT NULL,
			community_id TEXT NOT NULL,
			href TEXT DEFAULT '',
			created_at TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS messages (
			id TEXT PRIMARY KEY,
			content TEXT NOT NULL,
			author_id TEXT NOT NULL,
			author_name TEXT NOT NULL,
			author_avatar TEXT NOT NULL,
			channel_id TEXT NOT NULL,
			reply_to TEXT DEFAULT '',
			created_at TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS itinerary_activities (
			id TEXT PRIMARY KEY,
			text TEXT NOT NULL,
			time_label TEXT NOT NULL,
			day_index INTEGER NOT NULL,
			channel_id TEXT NOT NULL,
			icon_tag TEXT DEFAULT 'clock',
			icon_color TEXT DEFAULT '',
			border_color TEXT DEFAULT '',
			created_by TEXT DEFAULT '',
			created_at TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS checklist_items (
			id TEXT PRIMARY KEY,
			text TEXT NOT NULL,
			checked INTEGER DEFAULT 0,
			channel_id TEXT NOT NULL,
			created_by TEXT DEFAULT '',
			created_at TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS food_items (
			id TEXT PRIMARY KEY,
			text TEXT NOT NULL,
			checked INTEGER DEFAULT 0,
			channel_id TEXT NOT NULL,
			created_by TEXT DEFAULT '',
			created_at TEXT NOT NULL
		)`,
	}

	for _, stmt := range statements {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("schema exec failed: %w", err)
		}
	}
	return nil
}
