package iocache

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/huangsam/radar/internal/contract"
	"github.com/huangsam/radar/schema"
)

// cacheDialect holds the per-backend pieces of the forecast cache table.
type cacheDialect struct {
	keyType  string
	blobType string
	intType  string
	tsType   string
	upsert   string // Format string taking the quoted table name
}

var cacheDialects = map[schema.DatabaseBackend]cacheDialect{
	schema.SQLiteBackend: {
		keyType: "TEXT", blobType: "BLOB", intType: "INTEGER", tsType: "INTEGER",
		upsert: `INSERT OR REPLACE INTO %s (forecast_key, result_json, format_version, stored_at) VALUES (?, ?, ?, ?)`,
	},
	schema.MySQLBackend: {
		keyType: "VARCHAR(255)", blobType: "LONGBLOB", intType: "INT", tsType: "BIGINT",
		upsert: `INSERT INTO %s (forecast_key, result_json, format_version, stored_at) VALUES (?, ?, ?, ?) AS new
			ON DUPLICATE KEY UPDATE result_json = new.result_json, format_version = new.format_version, stored_at = new.stored_at`,
	},
	schema.PostgreSQLBackend: {
		keyType: "TEXT", blobType: "BYTEA", intType: "INTEGER", tsType: "BIGINT",
		upsert: `INSERT INTO %s (forecast_key, result_json, format_version, stored_at) VALUES ($1, $2, $3, $4)
			ON CONFLICT (forecast_key) DO UPDATE SET result_json = EXCLUDED.result_json, format_version = EXCLUDED.format_version, stored_at = EXCLUDED.stored_at`,
	},
}

// CacheStoreImpl keeps serialized forecast results keyed by their request fingerprint.
// A store on NoneBackend has no connection and behaves as an always-empty cache.
type CacheStoreImpl struct {
	db        *sql.DB
	tableName string
	backend   schema.DatabaseBackend
	connStr   string
}

var _ contract.CacheStore = &CacheStoreImpl{} // Compile-time check

// NewCacheStore opens the forecast cache table on the given backend, creating it if needed.
func NewCacheStore(tableName string, backend schema.DatabaseBackend, connStr string) (contract.CacheStore, error) {
	if err := validateTableName(tableName); err != nil {
		return nil, err
	}
	if backend == schema.NoneBackend {
		return &CacheStoreImpl{tableName: tableName, backend: backend}, nil
	}
	if _, ok := cacheDialects[backend]; !ok {
		return nil, fmt.Errorf("unsupported cache backend: %s. Must be sqlite, mysql, postgresql, or none", backend)
	}

	db, err := openDB(backend, connStr, GetDBFilePath())
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(getCreateTableQuery(tableName, backend)); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create table %s: %w", tableName, err)
	}
	return &CacheStoreImpl{db: db, tableName: tableName, backend: backend, connStr: connStr}, nil
}

// getCreateTableQuery returns the CREATE TABLE statement of the forecast cache.
func getCreateTableQuery(tableName string, backend schema.DatabaseBackend) string {
	d, ok := cacheDialects[backend]
	if !ok {
		d = cacheDialects[schema.SQLiteBackend]
	}
	return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		forecast_key %s PRIMARY KEY,
		result_json %s NOT NULL,
		format_version %s NOT NULL,
		stored_at %s NOT NULL
	)`, quoteTableName(tableName, backend), d.keyType, d.blobType, d.intType, d.tsType)
}

func (ps *CacheStoreImpl) disabled() bool {
	return ps.backend == schema.NoneBackend || ps.db == nil
}

func (ps *CacheStoreImpl) table() string {
	return quoteTableName(ps.tableName, ps.backend)
}

// Get returns the stored result, its format version and the unix time it was stored.
// A missing key yields sql.ErrNoRows.
func (ps *CacheStoreImpl) Get(key string) ([]byte, int, int64, error) {
	if ps.disabled() {
		return nil, 0, 0, sql.ErrNoRows
	}
	var (
		value    []byte
		version  int
		storedAt int64
	)
	query := rebind(ps.backend, fmt.Sprintf(`SELECT result_json, format_version, stored_at FROM %s WHERE forecast_key = ?`, ps.table()))
	if err := ps.db.QueryRow(query, key).Scan(&value, &version, &storedAt); err != nil {
		return nil, 0, 0, err
	}
	return value, version, storedAt, nil
}

// Set stores a result, replacing any previous entry for the key.
func (ps *CacheStoreImpl) Set(key string, value []byte, version int, timestamp int64) error {
	if ps.disabled() {
		return nil
	}
	_, err := ps.db.Exec(ps.getUpsertQuery(), key, value, version, timestamp)
	return err
}

func (ps *CacheStoreImpl) getUpsertQuery() string {
	return fmt.Sprintf(cacheDialects[ps.backend].upsert, ps.table())
}

// Close closes the underlying DB connection.
func (ps *CacheStoreImpl) Close() error {
	if ps.db != nil {
		return ps.db.Close()
	}
	return nil
}

// GetStatus reports entry counts, the stored-at range and the table footprint.
func (ps *CacheStoreImpl) GetStatus() (schema.CacheStatus, error) {
	status := schema.CacheStatus{
		Backend:   string(ps.backend),
		Connected: ps.db != nil,
	}
	if ps.disabled() {
		return status, nil
	}

	if err := ps.db.QueryRow(fmt.Sprintf("SELECT COUNT(*) FROM %s", ps.table())).Scan(&status.TotalEntries); err != nil {
		return status, fmt.Errorf("failed to get total entries: %w", err)
	}
	if status.TotalEntries == 0 {
		return status, nil
	}

	var newest, oldest int64
	if err := ps.db.QueryRow(fmt.Sprintf("SELECT MAX(stored_at), MIN(stored_at) FROM %s", ps.table())).Scan(&newest, &oldest); err != nil {
		return status, fmt.Errorf("failed to get entry time range: %w", err)
	}
	status.LastEntryTime = time.Unix(newest, 0)
	status.OldestEntryTime = time.Unix(oldest, 0)
	status.TableSizeBytes = ps.tableSize(status.TotalEntries)
	return status, nil
}

// tableSize asks the backend for the table footprint, falling back to a per-entry estimate.
func (ps *CacheStoreImpl) tableSize(entries int) int64 {
	estimate := int64(entries) * 1000
	var size int64
	var err error
	switch ps.backend {
	case schema.SQLiteBackend:
		err = ps.db.QueryRow("SELECT page_count * page_size FROM pragma_page_count(), pragma_page_size()").Scan(&size)
	case schema.MySQLBackend:
		cfg, parseErr := mysql.ParseDSN(ps.connStr)
		if parseErr != nil || cfg.DBName == "" {
			return estimate
		}
		err = ps.db.QueryRow("SELECT data_length + index_length FROM information_schema.tables WHERE table_schema = ? AND table_name = ?",
			cfg.DBName, ps.tableName).Scan(&size)
	case schema.PostgreSQLBackend:
		err = ps.db.QueryRow("SELECT pg_total_relation_size($1)", ps.tableName).Scan(&size)
	default:
		return estimate
	}
	if err != nil {
		return estimate
	}
	return size
}
