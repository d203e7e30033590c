package fallback

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	"tritonhub/db"
	"tritonhub/errs"
	"tritonhub/store"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

// LocalIDPrefix marks rows fabricated on this client so they can never
// collide with server-assigned ids.
const LocalIDPrefix = "local-"

func NewLocalID() string {
	return LocalIDPrefix + uuid.NewString()
}

type colKind int

const (
	colText colKind = iota
	colBool
	colInt
)

type columnSpec struct {
	name string
	kind colKind
}

var tableColumns = map[string][]columnSpec{
	"users": {
		{"id", colText}, {"email", colText}, {"password", colText},
		{"display_name", colText}, {"avatar_initial", colText},
	},
	store.TableCommunities: {
		{"id", colText}, {"name", colText}, {"description", colText},
		{"icon", colText}, {"member_count", colInt}, {"created_at", colText},
	},
	store.TableMembers: {
		{"id", colText}, {"user_id", colText}, {"community_id", colText},
		{"is_starred", colBool}, {"joined_at", colText},
	},
	store.TableChannels: {
		{"id", colText}, {"name", colText}, {"kind", colText},
		{"community_id", colText}, {"href", colText}, {"created_at", colText},
	},
	store.TableMessages: {
		{"id", colText}, {"content", colText}, {"author_id", colText},
		{"author_name", colText}, {"author_avatar", colText},
		{"channel_id", colText}, {"reply_to", colText}, {"created_at", colText},
	},
	store.TableActivities: {
		{"id", colText}, {"text", colText}, {"time_label", colText},
		{"day_index", colInt}, {"channel_id", colText}, {"icon_tag", colText},
		{"icon_color", colText}, {"border_color", colText},
		{"created_by", colText}, {"created_at", colText},
	},
	store.TableChecklist: {
		{"id", colText}, {"text", colText}, {"checked", colBool},
		{"channel_id", colText}, {"created_by", colText}, {"created_at", colText},
	},
	store.TableFood: {
		{"id", colText}, {"text", colText}, {"checked", colBool},
		{"channel_id", colText}, {"created_by", colText}, {"created_at", colText},
	},
}

type subscriber struct {
	table  string
	filter store.Filter
	events chan store.Event
	closed bool
}

// Seeded is the fallback-mode store: the full capability set over an
// in-memory sqlite database preloaded with demo data, plus a local bus so
// Subscribe behaves like the live change feed.
type Seeded struct {
	db *sql.DB

	mu      sync.Mutex
	subs    []*subscriber
	current *store.Identity

	authEvents chan store.AuthEvent
}

// NewSeeded opens and seeds the fallback database. dbFile is usually
// ":memory:"; a file path keeps fallback state across restarts.
func NewSeeded(dbFile string) (*Seeded, error) {
	if dbFile == "" {
		dbFile = ":memory:"
	}
	database, err := db.InitDB(dbFile)
	if err != nil {
		return nil, err
	}
	// A pooled :memory: handle would open a fresh empty database per
	// connection.
	database.SetMaxOpenConns(1)

	if err := ensureSeedSchema(database); err != nil {
		database.Close()
		return nil, err
	}
	s := &Seeded{
		db:         database,
		authEvents: make(chan store.AuthEvent, 8),
	}
	if err := s.seed(); err != nil {
		database.Close()
		return nil, err
	}
	return s, nil
}

func (s *Seeded) Close() {
	db.CloseDB(s.db)
}

func columnsFor(table string) ([]columnSpec, error) {
	cols, ok := tableColumns[table]
	if !ok {
		return nil, &errs.Remote{Code: "42P01", Message: fmt.Sprintf("relation %q does not exist", table)}
	}
	return cols, nil
}

func toStorage(kind colKind, v any) any {
	if kind == colBool {
		switch b := v.(type) {
		case bool:
			if b {
				return 1
			}
			return 0
		}
	}
	return v
}

func fromStorage(kind colKind, v any) any {
	switch kind {
	case colBool:
		if n, ok := v.(int64); ok {
			return n != 0
		}
	case colInt:
		if n, ok := v.(int64); ok {
			return int(n)
		}
	case colText:
		if b, ok := v.([]byte); ok {
			return string(b)
		}
	}
	return v
}

func wrapSQLError(err error) error {
	if err == nil {
		return nil
	}
	if strings.Contains(err.Error(), "UNIQUE constraint failed") {
		return &errs.Remote{Code: "23505", Message: err.Error()}
	}
	if strings.Contains(err.Error(), "no such table") {
		return &errs.Remote{Code: "42P01", Message: err.Error()}
	}
	return err
}

func (s *Seeded) Select(ctx context.Context, table string, f store.Filter, order []store.Order, limit int) ([]store.Row, error) {
	cols, err := columnsFor(table)
	if err != nil {
		return nil, err
	}

	names := make([]string, len(cols))
	for i, c := range cols {
		names[i] = c.name
	}
	query := "SELECT " + strings.Join(names, ", ") + " FROM " + table
	var args []any
	query, args = appendWhere(query, f)
	if len(order) > 0 {
		parts := make([]string, 0, len(order))
		for _, o := range order {
			dir := "DESC"
			if o.Ascending {
				dir = "ASC"
			}
			parts = append(parts, o.Column+" "+dir)
		}
		query += " ORDER BY " + strings.Join(parts, ", ")
	}
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, wrapSQLError(err)
	}
	defer rows.Close()

	var result []store.Row
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		row := store.Row{}
		for i, c := range cols {
			row[c.name] = fromStorage(c.kind, vals[i])
		}
		result = append(result, row)
	}
	return result, rows.Err()
}

func (s *Seeded) Insert(ctx context.Context, table string, row store.Row) (store.Row, error) {
	cols, err := columnsFor(table)
	if err != nil {
		return nil, err
	}

	inserted := store.Row{}
	for k, v := range row {
		inserted[k] = v
	}
	if id, _ := inserted["id"].(string); id == "" {
		inserted["id"] = NewLocalID()
	}
	now := time.Now().UTC().Format(time.RFC3339)
	for _, stamp := range []string{"created_at", "joined_at"} {
		if _, hasCol := hasColumn(cols, stamp); hasCol {
			if v, _ := inserted[stamp].(string); v == "" {
				inserted[stamp] = now
			}
		}
	}

	var names []string
	var marks []string
	var args []any
	for _, c := range cols {
		v, ok := inserted[c.name]
		if !ok {
			continue
		}
		names = append(names, c.name)
		marks = append(marks, "?")
		args = append(args, toStorage(c.kind, v))
	}

	query := "INSERT INTO " + table + " (" + strings.Join(names, ", ") + ") VALUES (" + strings.Join(marks, ", ") + ")"
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return nil, wrapSQLError(err)
	}

	full, err := s.Select(ctx, table, store.Filter{"id": fmt.Sprint(inserted["id"])}, nil, 1)
	if err != nil || len(full) == 0 {
		return inserted, err
	}
	s.publish(table, store.Event{Type: store.EventInsert, Row: full[0]})
	return full[0], nil
}

func (s *Seeded) Update(ctx context.Context, table string, f store.Filter, patch store.Row) error {
	cols, err := columnsFor(table)
	if err != nil {
		return err
	}

	var sets []string
	var args []any
	for _, c := range cols {
		v, ok := patch[c.name]
		if !ok {
			continue
		}
		sets = append(sets, c.name+" = ?")
		args = append(args, toStorage(c.kind, v))
	}
	if len(sets) == 0 {
		return nil
	}

	query := "UPDATE " + table + " SET " + strings.Join(sets, ", ")
	whereQuery, whereArgs := appendWhere("", f)
	query += whereQuery
	args = append(args, whereArgs...)

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return wrapSQLError(err)
	}

	updated, err := s.Select(ctx, table, f, nil, 0)
	if err != nil {
		return nil
	}
	for _, row := range updated {
		s.publish(table, store.Event{Type: store.EventUpdate, Row: row})
	}
	return nil
}

func (s *Seeded) Delete(ctx context.Context, table string, f store.Filter) error {
	doomed, err := s.Select(ctx, table, f, nil, 0)
	if err != nil {
		return err
	}

	query, args := appendWhere("DELETE FROM "+table, f)
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return wrapSQLError(err)
	}
	for _, row := range doomed {
		s.publish(table, store.Event{Type: store.EventDelete, Row: row})
	}
	return nil
}

func (s *Seeded) Count(ctx context.Context, table string, f store.Filter) (int, error) {
	if _, err := columnsFor(table); err != nil {
		return 0, err
	}
	query, args := appendWhere("SELECT COUNT(*) FROM "+table, f)
	var count int
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, wrapSQLError(err)
	}
	return count, nil
}

func appendWhere(query string, f store.Filter) (string, []any) {
	if len(f) == 0 {
		return query, nil
	}
	var conds []string
	var args []any
	for k, v := range f {
		conds = append(conds, k+" = ?")
		args = append(args, v)
	}
	return query + " WHERE " + strings.Join(conds, " AND "), args
}

// Subscribe registers a local bus subscriber. Events are delivered from
// the same process whenever a mutation touches a matching row.
func (s *Seeded) Subscribe(table string, f store.Filter) (*store.Subscription, error) {
	if _, err := columnsFor(table); err != nil {
		return nil, err
	}

	sub := &subscriber{
		table:  table,
		filter: f,
		events: make(chan store.Event, 64),
	}
	s.mu.Lock()
	s.subs = append(s.subs, sub)
	s.mu.Unlock()

	cancel := func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		for i, candidate := range s.subs {
			if candidate == sub {
				s.subs = append(s.subs[:i], s.subs[i+1:]...)
				break
			}
		}
		if !sub.closed {
			sub.closed = true
			close(sub.events)
		}
	}
	return store.NewSubscription(sub.events, cancel), nil
}

func (s *Seeded) publish(table string, event store.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sub := range s.subs {
		if sub.closed || sub.table != table {
			continue
		}
		if !matchesFilter(event.Row, sub.filter) {
			continue
		}
		select {
		case sub.events <- event:
		default:
			// Slow consumer; fallback feeds are best effort like the
			// live one.
		}
	}
}

func hasColumn(cols []columnSpec, name string) (int, bool) {
	for i, c := range cols {
		if c.name == name {
			return i, true
		}
	}
	return 0, false
}

func matchesFilter(row store.Row, f store.Filter) bool {
	for k, v := range f {
		if fmt.Sprint(row[k]) != v {
			return false
		}
	}
	return true
}
