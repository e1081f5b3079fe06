// Package database provides store connection management, schema creation
// and row loading for corpfetch.
package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"time"

	_ "github.com/go-sql-driver/mysql" // MySQL driver
	_ "github.com/jackc/pgx/v5/stdlib" // PostgreSQL driver ("pgx")
	_ "modernc.org/sqlite"             // SQLite driver ("sqlite")

	"github.com/dbsmedya/corpfetch/internal/config"
	"github.com/dbsmedya/corpfetch/internal/logger"
	"github.com/dbsmedya/corpfetch/internal/sqlutil"
	"github.com/dbsmedya/corpfetch/internal/types"
)

// ErrNotConnected is returned by operations that need an open store.
var ErrNotConnected = errors.New("store is not connected")

// Manager owns the single store connection used by a run.
type Manager struct {
	DB      *sql.DB
	config  *config.StoreConfig
	logger  *logger.Logger
	existed bool // sqlite file was present before Connect
}

// NewManager creates a new store manager from configuration.
func NewManager(cfg *config.StoreConfig, log *logger.Logger) *Manager {
	if log == nil {
		log = logger.NewDefault()
	}
	return &Manager{
		config: cfg,
		logger: log,
	}
}

// NewManagerWithDB wraps an already open handle.
func NewManagerWithDB(db *sql.DB, cfg *config.StoreConfig, log *logger.Logger) *Manager {
	m := NewManager(cfg, log)
	m.DB = db
	m.existed = true
	return m
}

// Dialect returns the SQL dialect of the configured driver.
func (m *Manager) Dialect() sqlutil.Dialect {
	return DialectFor(m.config.Driver)
}

// DialectFor maps a configured driver to its SQL dialect.
func DialectFor(driver string) sqlutil.Dialect {
	switch driver {
	case "mysql":
		return sqlutil.DialectMySQL
	case "postgres":
		return sqlutil.DialectPostgres
	default:
		return sqlutil.DialectSQLite
	}
}

// DriverName returns the database/sql driver name for a configured driver.
func DriverName(driver string) string {
	switch driver {
	case "mysql":
		return "mysql"
	case "postgres":
		return "pgx"
	default:
		return "sqlite"
	}
}

// Location describes where the store lives, without credentials.
func (m *Manager) Location() string {
	if m.config.Driver == "sqlite" || m.config.Driver == "" {
		return m.config.Path
	}
	return net.JoinHostPort(m.config.Host, strconv.Itoa(m.config.Port)) + "/" + m.config.Database
}

// StoreExists reports whether the SQLite file exists. Server stores
// always report true.
func (m *Manager) StoreExists() bool {
	if m.config.Driver != "sqlite" && m.config.Driver != "" {
		return true
	}
	_, err := os.Stat(m.config.Path)
	return err == nil
}

// Connect opens and verifies the store connection. For SQLite the parent
// directory is created when missing.
func (m *Manager) Connect(ctx context.Context) error {
	if m.DB != nil {
		return nil
	}

	maxRetries := 3
	if m.config.Driver == "sqlite" || m.config.Driver == "" {
		m.existed = m.StoreExists()
		if dir := filepath.Dir(m.config.Path); dir != "." && dir != "" {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return &types.ResourceError{Resource: types.ResourceStore, Path: dir, Op: "mkdir", Err: err}
			}
		}
		maxRetries = 1
	}

	db, err := m.connectWithRetry(ctx, maxRetries)
	if err != nil {
		return &types.ResourceError{Resource: types.ResourceStore, Path: m.Location(), Op: "connect", Err: err}
	}
	m.DB = db

	m.logger.Debugw("Store connected", "driver", m.config.Driver, "location", m.Location())
	return nil
}

// connectWithRetry attempts to connect with exponential backoff.
func (m *Manager) connectWithRetry(ctx context.Context, maxRetries int) (*sql.DB, error) {
	var db *sql.DB
	var err error

	backoff := time.Second

	for i := 0; i < maxRetries; i++ {
		db, err = m.connect()
		if err == nil {
			// Verify connection
			if pingErr := db.PingContext(ctx); pingErr == nil {
				return db, nil
			} else {
				db.Close()
				err = pingErr
			}
		}

		if i < maxRetries-1 {
			m.logger.Warnw("Store connection failed, retrying", "attempt", i+1, "backoff", backoff, "error", err)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
				backoff *= 2 // Exponential backoff
			}
		}
	}

	return nil, fmt.Errorf("failed after %d attempts: %w", maxRetries, err)
}

// connect creates a database handle.
func (m *Manager) connect() (*sql.DB, error) {
	db, err := sql.Open(DriverName(m.config.Driver), BuildDSN(m.config))
	if err != nil {
		return nil, err
	}

	// One writer at a time; the run is sequential.
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(10 * time.Minute)

	return db, nil
}

// BuildDSN constructs the data source name for the configured driver.
func BuildDSN(cfg *config.StoreConfig) string {
	switch cfg.Driver {
	case "mysql":
		return buildMySQLDSN(cfg)
	case "postgres":
		return buildPostgresDSN(cfg)
	default:
		return cfg.Path
	}
}

func buildMySQLDSN(cfg *config.StoreConfig) string {
	// Format: user:password@tcp(host:port)/database?params
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/",
		cfg.User,
		cfg.Password,
		cfg.Host,
		cfg.Port,
	)

	if cfg.Database != "" {
		dsn += cfg.Database
	}

	params := "?parseTime=true"
	switch cfg.TLS {
	case "disable":
		params += "&tls=false"
	case "required":
		params += "&tls=true"
	case "preferred", "":
		params += "&tls=preferred"
	}

	return dsn + params
}

func buildPostgresDSN(cfg *config.StoreConfig) string {
	sslmode := "prefer"
	switch cfg.TLS {
	case "disable":
		sslmode = "disable"
	case "required":
		sslmode = "require"
	}

	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(cfg.User, cfg.Password),
		Host:     net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		Path:     "/" + cfg.Database,
		RawQuery: "sslmode=" + sslmode,
	}
	return u.String()
}

// Close closes the store connection.
func (m *Manager) Close() error {
	if m.DB == nil {
		return nil
	}
	err := m.DB.Close()
	m.DB = nil
	if err != nil {
		return fmt.Errorf("store close: %w", err)
	}
	return nil
}

// Ping verifies the connection is alive.
func (m *Manager) Ping(ctx context.Context) error {
	if m.DB == nil {
		return ErrNotConnected
	}
	if err := m.DB.PingContext(ctx); err != nil {
		return fmt.Errorf("store ping failed: %w", err)
	}
	return nil
}
