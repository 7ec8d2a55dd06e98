// Package store implements the persistence collaborator over SQLite.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/pricelens/backend/internal/domain"
)

const schema = `
CREATE TABLE IF NOT EXISTS products (
	id             TEXT PRIMARY KEY,
	name           TEXT NOT NULL,
	sku            TEXT NOT NULL UNIQUE,
	current_price  REAL NOT NULL,
	currency       TEXT NOT NULL DEFAULT '',
	cost           REAL NOT NULL DEFAULT 0,
	margin_percent REAL NOT NULL DEFAULT 0,
	inventory      INTEGER
);

CREATE TABLE IF NOT EXISTS listings (
	store_id      TEXT NOT NULL,
	competitor_id TEXT NOT NULL,
	name          TEXT NOT NULL,
	url           TEXT NOT NULL,
	price         REAL NOT NULL,
	currency      TEXT NOT NULL DEFAULT '',
	source        TEXT NOT NULL DEFAULT 'Store',
	raw           TEXT,
	seen_at       TEXT NOT NULL,
	PRIMARY KEY (store_id, competitor_id)
);

CREATE TABLE IF NOT EXISTS matches (
	id            TEXT PRIMARY KEY,
	store_id      TEXT NOT NULL,
	product_id    TEXT NOT NULL,
	competitor_id TEXT NOT NULL,
	confidence    REAL NOT NULL,
	status        TEXT NOT NULL,
	created_at    TEXT NOT NULL,
	updated_at    TEXT NOT NULL,
	UNIQUE (store_id, competitor_id)
);

CREATE TABLE IF NOT EXISTS recommendations (
	id                TEXT PRIMARY KEY,
	store_id          TEXT NOT NULL,
	product_id        TEXT NOT NULL,
	product_name      TEXT NOT NULL,
	product_sku       TEXT NOT NULL DEFAULT '',
	product_price     REAL NOT NULL,
	recommended_price REAL NOT NULL,
	change_percent    REAL NOT NULL,
	direction         TEXT NOT NULL,
	competitor_avg    REAL NOT NULL,
	competitor_count  INTEGER NOT NULL,
	explanation       TEXT NOT NULL,
	competitors       TEXT NOT NULL,
	status            TEXT NOT NULL,
	created_at        TEXT NOT NULL
);
`

// SQLiteStore backs every repository interface of the engine with one
// embedded SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// Open opens (or creates) the database at path and bootstraps the schema.
// Use ":memory:" for an ephemeral store in tests.
func Open(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// The modernc driver is not safe for concurrent writes over multiple
	// connections; one connection keeps SQLITE_BUSY out of the picture.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("bootstrap schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close releases the underlying database handle.
func (s *SQLiteStore) Close() error { return s.db.Close() }

// --- CatalogRepository ---

// ListProducts returns the full catalog ordered by product ID.
func (s *SQLiteStore) ListProducts(ctx context.Context) ([]domain.Product, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, sku, current_price, currency, cost, margin_percent, inventory
		FROM products ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var products []domain.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, *p)
	}
	return products, rows.Err()
}

// GetProduct returns one product or ErrProductNotFound.
func (s *SQLiteStore) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, sku, current_price, currency, cost, margin_percent, inventory
		FROM products WHERE id = ?`, id)

	p, err := scanProduct(row)
	if err == sql.ErrNoRows {
		return nil, domain.ErrProductNotFound
	}
	return p, err
}

// SaveProducts upserts products keyed by SKU, so re-importing a catalog
// updates rows in place instead of duplicating them.
func (s *SQLiteStore) SaveProducts(ctx context.Context, products []domain.Product) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO products (id, name, sku, current_price, currency, cost, margin_percent, inventory)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(sku) DO UPDATE SET
			name = excluded.name,
			current_price = excluded.current_price,
			currency = excluded.currency,
			cost = excluded.cost,
			margin_percent = excluded.margin_percent,
			inventory = excluded.inventory`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, p := range products {
		var inventory interface{}
		if p.Inventory != nil {
			inventory = *p.Inventory
		}
		if _, err := stmt.ExecContext(ctx, p.ID, p.Name, p.SKU, p.CurrentPrice, p.Currency, p.Cost, p.MarginPercent, inventory); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// UpdatePrice applies an accepted recommendation's price and keeps the
// derived margin consistent in the same statement.
func (s *SQLiteStore) UpdatePrice(ctx context.Context, productID string, newPrice float64) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE products
		SET current_price = ?1,
		    margin_percent = CASE WHEN ?1 > 0 THEN (?1 - cost) / ?1 * 100 ELSE 0 END
		WHERE id = ?2`, newPrice, productID)
	if err != nil {
		return err
	}
	return requireRow(res, domain.ErrProductNotFound)
}

// --- ListingRepository ---

// SaveListings upserts the latest feed snapshot for a store.
func (s *SQLiteStore) SaveListings(ctx context.Context, storeID string, listings []domain.RawListing) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO listings (store_id, competitor_id, name, url, price, currency, source, raw, seen_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(store_id, competitor_id) DO UPDATE SET
			name = excluded.name,
			url = excluded.url,
			price = excluded.price,
			currency = excluded.currency,
			source = excluded.source,
			raw = excluded.raw,
			seen_at = excluded.seen_at`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	now := time.Now().UTC().Format(time.RFC3339Nano)
	for _, l := range listings {
		if _, err := stmt.ExecContext(ctx, storeID, l.URL, l.Name, l.URL, l.Price, l.Currency, l.SourceLabel(), string(l.Raw), now); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// ListListings returns the last-seen feed snapshot for a store.
func (s *SQLiteStore) ListListings(ctx context.Context, storeID string) ([]domain.RawListing, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT name, url, price, currency, source, raw
		FROM listings WHERE store_id = ? ORDER BY competitor_id`, storeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var listings []domain.RawListing
	for rows.Next() {
		var l domain.RawListing
		var raw sql.NullString
		if err := rows.Scan(&l.Name, &l.URL, &l.Price, &l.Currency, &l.Source, &raw); err != nil {
			return nil, err
		}
		if raw.Valid && raw.String != "" {
			l.Raw = json.RawMessage(raw.String)
		}
		listings = append(listings, l)
	}
	return listings, rows.Err()
}

// --- MatchRepository ---

// ListMatches returns a store's matches in match-creation order.
func (s *SQLiteStore) ListMatches(ctx context.Context, storeID string) ([]domain.Match, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, store_id, product_id, competitor_id, confidence, status, created_at, updated_at
		FROM matches WHERE store_id = ? ORDER BY created_at, id`, storeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var matches []domain.Match
	for rows.Next() {
		m, err := scanMatch(rows)
		if err != nil {
			return nil, err
		}
		matches = append(matches, *m)
	}
	return matches, rows.Err()
}

// GetMatch returns one match or ErrMatchNotFound.
func (s *SQLiteStore) GetMatch(ctx context.Context, id string) (*domain.Match, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, store_id, product_id, competitor_id, confidence, status, created_at, updated_at
		FROM matches WHERE id = ?`, id)

	m, err := scanMatch(row)
	if err == sql.ErrNoRows {
		return nil, domain.ErrMatchNotFound
	}
	return m, err
}

// UpsertMatches writes a matcher pass's output. Terminal rows are guarded
// here too: the update clause refuses to overwrite CONFIRMED/REJECTED even
// if a racing run slipped one past the matcher's snapshot.
func (s *SQLiteStore) UpsertMatches(ctx context.Context, matches []domain.Match) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO matches (id, store_id, product_id, competitor_id, confidence, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			product_id = excluded.product_id,
			confidence = excluded.confidence,
			status = excluded.status,
			updated_at = excluded.updated_at
		WHERE matches.status NOT IN ('CONFIRMED', 'REJECTED')`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, m := range matches {
		if _, err := stmt.ExecContext(ctx,
			m.ID, m.Listing.StoreID, m.ProductID, m.Listing.CompetitorID,
			m.Confidence, string(m.Status),
			m.CreatedAt.UTC().Format(time.RFC3339Nano),
			m.UpdatedAt.UTC().Format(time.RFC3339Nano)); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// SetMatchStatus transitions one match atomically: the write only lands if
// the current status is still one of allowedFrom.
func (s *SQLiteStore) SetMatchStatus(ctx context.Context, id string, to domain.MatchStatus, allowedFrom ...domain.MatchStatus) error {
	args := []interface{}{string(to), time.Now().UTC().Format(time.RFC3339Nano), id}
	for _, st := range allowedFrom {
		args = append(args, string(st))
	}

	res, err := s.db.ExecContext(ctx, fmt.Sprintf(`
		UPDATE matches SET status = ?, updated_at = ? WHERE id = ? AND status IN (%s)`,
		placeholders(len(allowedFrom))), args...)
	if err != nil {
		return err
	}

	if err := requireRow(res, nil); err != nil {
		// Distinguish a missing row from a guarded one.
		if _, getErr := s.GetMatch(ctx, id); getErr != nil {
			return getErr
		}
		return domain.ErrInvalidTransition
	}
	return nil
}

// --- RecommendationRepository ---

// ListRecommendations returns a store's recommendations, newest run first.
func (s *SQLiteStore) ListRecommendations(ctx context.Context, storeID string) ([]domain.ProductRecommendation, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, store_id, product_id, product_name, product_sku, product_price,
		       recommended_price, change_percent, direction, competitor_avg,
		       competitor_count, explanation, competitors, status, created_at
		FROM recommendations WHERE store_id = ? ORDER BY created_at DESC, product_id`, storeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var recs []domain.ProductRecommendation
	for rows.Next() {
		r, err := scanRecommendation(rows)
		if err != nil {
			return nil, err
		}
		recs = append(recs, *r)
	}
	return recs, rows.Err()
}

// GetRecommendation returns one recommendation or ErrRecommendationNotFound.
func (s *SQLiteStore) GetRecommendation(ctx context.Context, id string) (*domain.ProductRecommendation, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, store_id, product_id, product_name, product_sku, product_price,
		       recommended_price, change_percent, direction, competitor_avg,
		       competitor_count, explanation, competitors, status, created_at
		FROM recommendations WHERE id = ?`, id)

	r, err := scanRecommendation(row)
	if err == sql.ErrNoRows {
		return nil, domain.ErrRecommendationNotFound
	}
	return r, err
}

// SaveRecommendations replaces the store's PENDING recommendations with a new
// run's output. APPLIED/DISMISSED rows stay as history.
func (s *SQLiteStore) SaveRecommendations(ctx context.Context, storeID string, recs []domain.ProductRecommendation) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM recommendations WHERE store_id = ? AND status = ?`,
		storeID, string(domain.RecommendationPending)); err != nil {
		return err
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO recommendations (id, store_id, product_id, product_name, product_sku,
			product_price, recommended_price, change_percent, direction, competitor_avg,
			competitor_count, explanation, competitors, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, r := range recs {
		slots, err := json.Marshal(r.Competitors)
		if err != nil {
			return err
		}
		if _, err := stmt.ExecContext(ctx,
			r.ID, r.StoreID, r.ProductID, r.ProductName, r.ProductSKU,
			r.ProductPrice, r.RecommendedPrice, r.ChangePercent, string(r.Direction),
			r.CompetitorAvg, r.CompetitorCount, r.Explanation, string(slots),
			string(r.Status), r.CreatedAt.UTC().Format(time.RFC3339Nano)); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// SetRecommendationStatus transitions one recommendation atomically, same
// contract as SetMatchStatus.
func (s *SQLiteStore) SetRecommendationStatus(ctx context.Context, id string, to domain.RecommendationStatus, allowedFrom ...domain.RecommendationStatus) error {
	args := []interface{}{string(to), id}
	for _, st := range allowedFrom {
		args = append(args, string(st))
	}

	res, err := s.db.ExecContext(ctx, fmt.Sprintf(`
		UPDATE recommendations SET status = ? WHERE id = ? AND status IN (%s)`,
		placeholders(len(allowedFrom))), args...)
	if err != nil {
		return err
	}

	if err := requireRow(res, nil); err != nil {
		if _, getErr := s.GetRecommendation(ctx, id); getErr != nil {
			return getErr
		}
		return domain.ErrInvalidTransition
	}
	return nil
}

// --- scan helpers ---

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanProduct(row rowScanner) (*domain.Product, error) {
	var p domain.Product
	var inventory sql.NullInt64
	if err := row.Scan(&p.ID, &p.Name, &p.SKU, &p.CurrentPrice, &p.Currency, &p.Cost, &p.MarginPercent, &inventory); err != nil {
		return nil, err
	}
	if inventory.Valid {
		qty := int(inventory.Int64)
		p.Inventory = &qty
	}
	return &p, nil
}

func scanMatch(row rowScanner) (*domain.Match, error) {
	var m domain.Match
	var status, createdAt, updatedAt string
	if err := row.Scan(&m.ID, &m.Listing.StoreID, &m.ProductID, &m.Listing.CompetitorID, &m.Confidence, &status, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	m.Status = domain.MatchStatus(status)
	m.CreatedAt = parseTime(createdAt)
	m.UpdatedAt = parseTime(updatedAt)
	return &m, nil
}

func scanRecommendation(row rowScanner) (*domain.ProductRecommendation, error) {
	var r domain.ProductRecommendation
	var direction, slots, status, createdAt string
	if err := row.Scan(&r.ID, &r.StoreID, &r.ProductID, &r.ProductName, &r.ProductSKU,
		&r.ProductPrice, &r.RecommendedPrice, &r.ChangePercent, &direction,
		&r.CompetitorAvg, &r.CompetitorCount, &r.Explanation, &slots, &status, &createdAt); err != nil {
		return nil, err
	}
	r.Direction = domain.Direction(direction)
	r.Status = domain.RecommendationStatus(status)
	r.CreatedAt = parseTime(createdAt)
	if err := json.Unmarshal([]byte(slots), &r.Competitors); err != nil {
		return nil, fmt.Errorf("decode competitor slots: %w", err)
	}
	return &r, nil
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

// requireRow converts a zero-row update into notFound (or a generic error
// when notFound is nil).
func requireRow(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		if notFound != nil {
			return notFound
		}
		return sql.ErrNoRows
	}
	return nil
}
