package registry

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// scoreCoef is the exponential-weighting coefficient applied by ScoreUp and
// ScoreDown, grounded on original_source's proxy.py SCORE_COEF.
const scoreCoef = 0.25

// schema creates the proxy and node tables. (host, port) is the proxy
// identity rather than original_source's single-column host primary key,
// since a host can legitimately expose more than one proxy port.
const schema = `
CREATE TABLE IF NOT EXISTS proxy (
	host           TEXT NOT NULL,
	port           INTEGER NOT NULL,
	created_at     DATETIME NOT NULL,
	last_check_at  DATETIME NOT NULL,
	inactive_since DATETIME,
	is_active      BOOLEAN NOT NULL,
	country        TEXT NOT NULL DEFAULT '',
	region         TEXT NOT NULL DEFAULT '',
	city           TEXT NOT NULL DEFAULT '',
	score          REAL NOT NULL DEFAULT 0,
	PRIMARY KEY (host, port)
);

CREATE TABLE IF NOT EXISTS node (
	url            TEXT NOT NULL PRIMARY KEY,
	created_at     DATETIME NOT NULL,
	last_check_at  DATETIME,
	inactive_since DATETIME,
	is_active      BOOLEAN NOT NULL DEFAULT 0
);
`

// Proxy is a discovered open HTTP proxy and its lifecycle state, grounded
// on original_source's Proxy SQLAlchemy model.
type Proxy struct {
	Host          string
	Port          int
	CreatedAt     time.Time
	LastCheckAt   time.Time
	InactiveSince *time.Time
	IsActive      bool
	Country       string
	Region        string
	City          string
	Score         float64
}

func (p Proxy) String() string {
	return fmt.Sprintf("%s:%d", p.Host, p.Port)
}

// ScoreUp applies the up-transition of the score EWMA after a successful
// validation.
func (p *Proxy) ScoreUp() {
	p.Score = p.Score*(1-scoreCoef) + scoreCoef
}

// ScoreDown applies the down-transition of the score EWMA after a failed
// validation.
func (p *Proxy) ScoreDown() {
	p.Score = p.Score * (1 - scoreCoef)
}

// Node is a peer registry instance known for proxy/node-set sync, grounded
// on original_source's Node SQLAlchemy model.
type Node struct {
	URL           string
	CreatedAt     time.Time
	LastCheckAt   *time.Time
	InactiveSince *time.Time
	IsActive      bool
}

// Store is the persistent registry of proxies and nodes. It wraps a single
// shared *sql.DB connection pool rather than original_source's
// SessionThreadPool (one SQLAlchemy session per thread): *sql.DB is already
// safe for concurrent use and hands out pooled connections per statement,
// so no session-affinity layer is needed.
type Store struct {
	db *sql.DB
}

// OpenStore opens (creating if necessary) the SQLite database at path and
// ensures its schema exists.
func OpenStore(ctx context.Context, path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// CreateProxy fills CreatedAt/LastCheckAt defaults if unset and looks up
// geo info from geo before inserting, grounded on Proxy.create.
func (s *Store) CreateProxy(ctx context.Context, p Proxy, geo *GeoStore) error {
	now := time.Now()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	if p.LastCheckAt.IsZero() {
		p.LastCheckAt = now
	}
	if geo != nil && p.Country == "" && p.Region == "" && p.City == "" {
		if block, ok, err := geo.Lookup(p.Host); err == nil && ok {
			p.Country = block.Country
			p.Region = block.Region
			p.City = block.City
		}
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO proxy (host, port, created_at, last_check_at, inactive_since, is_active, country, region, city, score)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.Host, p.Port, p.CreatedAt, p.LastCheckAt, p.InactiveSince, p.IsActive, p.Country, p.Region, p.City, p.Score)
	if err != nil {
		return fmt.Errorf("inserting proxy %s:%d: %w", p.Host, p.Port, err)
	}
	Log.Debug("proxy inserted", "host", p.Host, "port", p.Port)
	return nil
}

// GetProxy returns the proxy at host:port, or ok=false if none exists.
func (s *Store) GetProxy(ctx context.Context, host string, port int) (Proxy, bool, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT host, port, created_at, last_check_at, inactive_since, is_active, country, region, city, score
		FROM proxy WHERE host = ? AND port = ?`, host, port)
	p, err := scanProxy(row)
	if err == sql.ErrNoRows {
		return Proxy{}, false, nil
	}
	if err != nil {
		return Proxy{}, false, err
	}
	return p, true, nil
}

// ProxyExists reports whether a proxy at host:port is already stored.
func (s *Store) ProxyExists(ctx context.Context, host string, port int) (bool, error) {
	_, ok, err := s.GetProxy(ctx, host, port)
	return ok, err
}

// ListActiveProxies returns all proxies currently marked active.
func (s *Store) ListActiveProxies(ctx context.Context) ([]Proxy, error) {
	return s.queryProxies(ctx, `
		SELECT host, port, created_at, last_check_at, inactive_since, is_active, country, region, city, score
		FROM proxy WHERE is_active = 1`)
}

// ListInactiveProxies returns all proxies currently marked inactive.
func (s *Store) ListInactiveProxies(ctx context.Context) ([]Proxy, error) {
	return s.queryProxies(ctx, `
		SELECT host, port, created_at, last_check_at, inactive_since, is_active, country, region, city, score
		FROM proxy WHERE is_active = 0`)
}

func (s *Store) queryProxies(ctx context.Context, query string, args ...any) ([]Proxy, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Proxy
	for rows.Next() {
		p, err := scanProxy(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProxy(row rowScanner) (Proxy, error) {
	var p Proxy
	var inactiveSince sql.NullTime
	err := row.Scan(&p.Host, &p.Port, &p.CreatedAt, &p.LastCheckAt, &inactiveSince, &p.IsActive, &p.Country, &p.Region, &p.City, &p.Score)
	if err != nil {
		return Proxy{}, err
	}
	if inactiveSince.Valid {
		p.InactiveSince = &inactiveSince.Time
	}
	return p, nil
}

// UpdateProxyScore persists p's score, grounded on Proxy.score_up/score_down
// being plain in-memory mutations followed by session.commit().
func (s *Store) UpdateProxyScore(ctx context.Context, p Proxy) error {
	_, err := s.db.ExecContext(ctx, `UPDATE proxy SET score = ? WHERE host = ? AND port = ?`, p.Score, p.Host, p.Port)
	return err
}

// SetProxyActive marks a proxy active, clearing inactive_since, grounded on
// Node.set_active's analogous transition (proxy.py has no direct
// equivalent, so the shape is carried over from Node).
func (s *Store) SetProxyActive(ctx context.Context, host string, port int) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE proxy SET is_active = 1, last_check_at = ?, inactive_since = NULL
		WHERE host = ? AND port = ?`, time.Now(), host, port)
	return err
}

// SetProxyInactive marks a proxy inactive, setting inactive_since only if
// it isn't already set, grounded on Node.set_inactive.
func (s *Store) SetProxyInactive(ctx context.Context, host string, port int) error {
	now := time.Now()
	_, err := s.db.ExecContext(ctx, `
		UPDATE proxy SET is_active = 0, last_check_at = ?,
			inactive_since = COALESCE(inactive_since, ?)
		WHERE host = ? AND port = ?`, now, now, host, port)
	return err
}

// CreateNode inserts a node, filling CreatedAt if unset, grounded on
// Node.create.
func (s *Store) CreateNode(ctx context.Context, n Node) error {
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO node (url, created_at, last_check_at, inactive_since, is_active)
		VALUES (?, ?, ?, ?, ?)`, n.URL, n.CreatedAt, n.LastCheckAt, n.InactiveSince, n.IsActive)
	return err
}

// NodeExists reports whether url is already a known node.
func (s *Store) NodeExists(ctx context.Context, url string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM node WHERE url = ?)`, url).Scan(&exists)
	return exists, err
}

// InsertNodesByURLs inserts nodes for each URL not already known, grounded
// on Node.insert_by_urls. Each URL is normalized with a trailing slash.
func (s *Store) InsertNodesByURLs(ctx context.Context, urls []string) error {
	for _, u := range urls {
		if err := ValidNodeURL(u); err != nil {
			return err
		}
		u = ensureTrailingSlash(u)
		exists, err := s.NodeExists(ctx, u)
		if err != nil {
			return err
		}
		if exists {
			continue
		}
		if err := s.CreateNode(ctx, Node{URL: u}); err != nil {
			return err
		}
	}
	return nil
}

// ListActiveNodes returns all nodes currently marked active.
func (s *Store) ListActiveNodes(ctx context.Context) ([]Node, error) {
	return s.queryNodes(ctx, `SELECT url, created_at, last_check_at, inactive_since, is_active FROM node WHERE is_active = 1`)
}

// ListInactiveNodes returns all nodes currently marked inactive.
func (s *Store) ListInactiveNodes(ctx context.Context) ([]Node, error) {
	return s.queryNodes(ctx, `SELECT url, created_at, last_check_at, inactive_since, is_active FROM node WHERE is_active = 0`)
}

func (s *Store) queryNodes(ctx context.Context, query string) ([]Node, error) {
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Node
	for rows.Next() {
		var n Node
		var lastCheck, inactiveSince sql.NullTime
		if err := rows.Scan(&n.URL, &n.CreatedAt, &lastCheck, &inactiveSince, &n.IsActive); err != nil {
			return nil, err
		}
		if lastCheck.Valid {
			n.LastCheckAt = &lastCheck.Time
		}
		if inactiveSince.Valid {
			n.InactiveSince = &inactiveSince.Time
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

// SetNodeActive marks a node active, grounded on Node.set_active.
func (s *Store) SetNodeActive(ctx context.Context, url string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE node SET is_active = 1, last_check_at = ?, inactive_since = NULL WHERE url = ?`, time.Now(), url)
	return err
}

// SetNodeInactive marks a node inactive, grounded on Node.set_inactive.
func (s *Store) SetNodeInactive(ctx context.Context, url string) error {
	now := time.Now()
	_, err := s.db.ExecContext(ctx, `
		UPDATE node SET is_active = 0, last_check_at = ?,
			inactive_since = COALESCE(inactive_since, ?)
		WHERE url = ?`, now, now, url)
	return err
}
