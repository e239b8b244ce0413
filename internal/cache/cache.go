// Package cache keeps scraped listings in a local SQLite database so the
// TUI can start without touching the network.
package cache

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/matheuskafuri/phnews/internal/model"
)

const lastRefreshKey = "last_refresh"

type Cache struct {
	readDB  *sql.DB
	writeDB *sql.DB
	now     func() time.Time
}

func Open(dbPath string) (*Cache, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("creating cache dir: %w", err)
	}

	writeDB, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening write db: %w", err)
	}
	writeDB.SetMaxOpenConns(1)

	readDB, err := sql.Open("sqlite", dbPath+"?mode=ro")
	if err != nil {
		writeDB.Close()
		return nil, fmt.Errorf("opening read db: %w", err)
	}

	c := &Cache{readDB: readDB, writeDB: writeDB, now: time.Now}
	if err := c.init(); err != nil {
		c.Close()
		return nil, err
	}
	return c, nil
}

func (c *Cache) init() error {
	_, err := c.writeDB.Exec(`
		CREATE TABLE IF NOT EXISTS products (
			list        TEXT NOT NULL,
			id          TEXT NOT NULL,
			position    INTEGER NOT NULL,
			name        TEXT NOT NULL,
			tagline     TEXT NOT NULL DEFAULT '',
			description TEXT NOT NULL DEFAULT '',
			topics      TEXT NOT NULL DEFAULT '',
			created_at  DATETIME NOT NULL,
			fetched_at  DATETIME NOT NULL,
			payload     TEXT NOT NULL,
			summary     TEXT NOT NULL DEFAULT '',
			tags        TEXT NOT NULL DEFAULT '',
			PRIMARY KEY (list, id)
		);
		CREATE INDEX IF NOT EXISTS idx_products_position ON products(list, position);
		CREATE INDEX IF NOT EXISTS idx_products_fetched ON products(fetched_at);

		CREATE TABLE IF NOT EXISTS meta (
			key   TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);
	`)
	if err != nil {
		return fmt.Errorf("initializing schema: %w", err)
	}
	return nil
}

func (c *Cache) Close() error {
	var errs []error
	if c.readDB != nil {
		errs = append(errs, c.readDB.Close())
	}
	if c.writeDB != nil {
		errs = append(errs, c.writeDB.Close())
	}
	return errors.Join(errs...)
}

// topicKey encodes topic slugs so a LIKE '%,slug,%' matches whole slugs.
func topicKey(topics []model.Topic) string {
	if len(topics) == 0 {
		return ""
	}
	slugs := make([]string, 0, len(topics))
	for _, t := range topics {
		slugs = append(slugs, model.GenerateTopicSlug(t))
	}
	return "," + strings.Join(slugs, ",") + ","
}

// UpsertProducts stores products as the current snapshot of list, in order.
// Rows from earlier snapshots move behind the new ones and keep their
// summaries.
func (c *Cache) UpsertProducts(list string, products []model.Product) error {
	fetchedAt := c.now().UTC()

	tx, err := c.writeDB.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`UPDATE products SET position = position + ? WHERE list = ?`, len(products), list); err != nil {
		return fmt.Errorf("shifting %s: %w", list, err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO products (list, id, position, name, tagline, description, topics, created_at, fetched_at, payload)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(list, id) DO UPDATE SET
			position = excluded.position,
			name = excluded.name,
			tagline = excluded.tagline,
			description = excluded.description,
			topics = excluded.topics,
			fetched_at = excluded.fetched_at,
			payload = excluded.payload
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, p := range products {
		payload, err := json.Marshal(p)
		if err != nil {
			return fmt.Errorf("encoding product %s: %w", p.ID, err)
		}
		_, err = stmt.Exec(list, p.ID, i, p.Name, p.Tagline, p.Description, topicKey(p.Topics),
			p.CreatedAt.UTC(), fetchedAt, string(payload))
		if err != nil {
			return fmt.Errorf("upserting product %s: %w", p.ID, err)
		}
	}

	return tx.Commit()
}

// SaveDetails replaces the stored payload of p in every list that holds it.
func (c *Cache) SaveDetails(p model.Product) error {
	payload, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encoding product %s: %w", p.ID, err)
	}
	_, err = c.writeDB.Exec(`
		UPDATE products SET payload = ?, description = ?, topics = ? WHERE id = ?
	`, string(payload), p.Description, topicKey(p.Topics), p.ID)
	return err
}

func (c *Cache) GetProducts(opts QueryOpts) ([]Entry, error) {
	var (
		where []string
		args  []any
	)

	if opts.List != "" {
		where = append(where, "list = ?")
		args = append(args, opts.List)
	}

	if !opts.Since.IsZero() {
		where = append(where, "created_at >= ?")
		args = append(args, opts.Since.UTC())
	}

	if len(opts.Topics) > 0 {
		ors := make([]string, len(opts.Topics))
		for i, t := range opts.Topics {
			ors[i] = "topics LIKE ?"
			args = append(args, "%,"+t+",%")
		}
		where = append(where, "("+strings.Join(ors, " OR ")+")")
	}

	if opts.Search != "" {
		where = append(where, "(name LIKE ? OR tagline LIKE ? OR description LIKE ?)")
		term := "%" + opts.Search + "%"
		args = append(args, term, term, term)
	}

	query := "SELECT list, position, fetched_at, payload, summary, tags FROM products"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY list, position"

	limit := opts.Limit
	if limit <= 0 {
		limit = 500
	}
	query += fmt.Sprintf(" LIMIT %d", limit)

	rows, err := c.readDB.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying products: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			e       Entry
			payload string
		)
		if err := rows.Scan(&e.List, &e.Position, &e.FetchedAt, &payload, &e.Summary, &e.Tags); err != nil {
			return nil, fmt.Errorf("scanning product: %w", err)
		}
		if err := json.Unmarshal([]byte(payload), &e.Product); err != nil {
			return nil, fmt.Errorf("decoding product: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Products is GetProducts without the cache bookkeeping.
func (c *Cache) Products(opts QueryOpts) ([]model.Product, error) {
	entries, err := c.GetProducts(opts)
	if err != nil {
		return nil, err
	}
	out := make([]model.Product, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Product)
	}
	return out, nil
}

func (c *Cache) UpdateProductSummary(id, summary, tags string) error {
	_, err := c.writeDB.Exec(`UPDATE products SET summary = ?, tags = ? WHERE id = ?`, summary, tags, id)
	return err
}

// Prune deletes rows fetched longer than retention ago and reclaims the
// space.
func (c *Cache) Prune(retention time.Duration) (int64, error) {
	cutoff := c.now().Add(-retention).UTC()
	res, err := c.writeDB.Exec(`DELETE FROM products WHERE fetched_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("deleting old products: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	if n > 0 {
		if _, err := c.writeDB.Exec(`VACUUM`); err != nil {
			return n, fmt.Errorf("vacuum: %w", err)
		}
	}
	return n, nil
}

// Stats returns the number of cached rows and the size of the file at dbPath.
func (c *Cache) Stats(dbPath string) (int, int64, error) {
	var count int
	if err := c.readDB.QueryRow(`SELECT COUNT(*) FROM products`).Scan(&count); err != nil {
		return 0, 0, fmt.Errorf("counting products: %w", err)
	}
	fi, err := os.Stat(dbPath)
	if err != nil {
		return count, 0, err
	}
	return count, fi.Size(), nil
}

func (c *Cache) NeedsRefresh(interval time.Duration) bool {
	value, err := c.getMeta(lastRefreshKey)
	if err != nil {
		return true
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return true
	}
	return c.now().Sub(t) >= interval
}

func (c *Cache) SetLastRefresh() error {
	return c.setMeta(lastRefreshKey, c.now().Format(time.RFC3339))
}

// SetDebug stores value as JSON under key, replacing what was there.
func (c *Cache) SetDebug(key string, value any) error {
	b, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", key, err)
	}
	return c.setMeta(key, string(b))
}

// GetDebug decodes the record stored under key into dst. It reports false if
// nothing was stored.
func (c *Cache) GetDebug(key string, dst any) (bool, error) {
	value, err := c.getMeta(key)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal([]byte(value), dst); err != nil {
		return false, fmt.Errorf("decoding %s: %w", key, err)
	}
	return true, nil
}

func (c *Cache) getMeta(key string) (string, error) {
	var value string
	err := c.readDB.QueryRow(`SELECT value FROM meta WHERE key = ?`, key).Scan(&value)
	return value, err
}

func (c *Cache) setMeta(key, value string) error {
	_, err := c.writeDB.Exec(`
		INSERT INTO meta (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	return err
}
