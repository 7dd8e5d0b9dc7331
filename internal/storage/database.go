package storage

import (
	"database/sql"
	"fmt"
	"strings"

	"socialapi/internal/config"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

// Open connects to the database selected by dbType using the matching config entry.
func Open(dbType string, cfg *config.Config) (*sql.DB, error) {
	driver := NormalizeDriver(dbType)
	dbCfg, ok := lookupDatabaseConfig(cfg, dbType, driver)
	if !ok {
		return nil, fmt.Errorf("database config for %s not found", dbType)
	}

	var (
		db  *sql.DB
		err error
	)

	switch driver {
	case DriverSQLite:
		if dbCfg.DSN == "" {
			return nil, fmt.Errorf("sqlite dsn must be provided")
		}
		db, err = sql.Open(DriverSQLite, sqliteDSN(dbCfg.DSN))
		if err != nil {
			return nil, fmt.Errorf("open sqlite database: %w", err)
		}
		if isMemoryDSN(dbCfg.DSN) {
			// every new connection would see its own empty in-memory database
			db.SetMaxOpenConns(1)
		}
	case DriverMySQL:
		dsn := dbCfg.DSN
		if dsn == "" {
			dsn = fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?%s",
				dbCfg.Username,
				dbCfg.Password,
				dbCfg.Host,
				dbCfg.Port,
				dbCfg.DBName,
				dbCfg.Params,
			)
		}
		db, err = sql.Open(DriverMySQL, dsn)
		if err != nil {
			return nil, fmt.Errorf("open mysql database: %w", err)
		}
	case DriverPostgres:
		dsn := dbCfg.DSN
		if dsn == "" {
			params := dbCfg.Params
			if params == "" {
				params = "sslmode=disable"
			}
			dsn = fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s %s",
				dbCfg.Host,
				dbCfg.Port,
				dbCfg.Username,
				dbCfg.Password,
				dbCfg.DBName,
				params,
			)
		}
		db, err = sql.Open(DriverPostgres, dsn)
		if err != nil {
			return nil, fmt.Errorf("open postgres database: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported driver: %s", dbType)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return db, nil
}

func lookupDatabaseConfig(cfg *config.Config, names ...string) (config.DatabaseConfig, bool) {
	if cfg == nil {
		return config.DatabaseConfig{}, false
	}
	for _, name := range names {
		if dbCfg, ok := cfg.Databases[name]; ok {
			return dbCfg, true
		}
	}
	return config.DatabaseConfig{}, false
}

func sqliteDSN(dsn string) string {
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + "_foreign_keys=1&_busy_timeout=5000"
}

func isMemoryDSN(dsn string) bool {
	return strings.HasPrefix(dsn, ":memory:") ||
		strings.HasPrefix(dsn, "file::memory:") ||
		strings.Contains(dsn, "mode=memory")
}

// Migrate ensures the account and message tables are present.
func Migrate(db *sql.DB, dbType string) error {
	var stmts []string
	switch NormalizeDriver(dbType) {
	case DriverSQLite:
		stmts = []string{
			`CREATE TABLE IF NOT EXISTS account (
				account_id INTEGER PRIMARY KEY AUTOINCREMENT,
				username TEXT NOT NULL UNIQUE,
				password TEXT NOT NULL
			)`,
			`CREATE TABLE IF NOT EXISTS message (
				message_id INTEGER PRIMARY KEY AUTOINCREMENT,
				posted_by INTEGER NOT NULL,
				message_text TEXT NOT NULL,
				time_posted_epoch INTEGER NOT NULL,
				FOREIGN KEY(posted_by) REFERENCES account(account_id)
			)`,
			`CREATE INDEX IF NOT EXISTS idx_message_posted_by ON message(posted_by)`,
		}
	case DriverMySQL:
		stmts = []string{
			`CREATE TABLE IF NOT EXISTS account (
				account_id BIGINT NOT NULL AUTO_INCREMENT,
				username VARCHAR(255) NOT NULL,
				password VARCHAR(255) NOT NULL,
				PRIMARY KEY (account_id),
				UNIQUE KEY uniq_account_username (username)
			) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
			`CREATE TABLE IF NOT EXISTS message (
				message_id BIGINT NOT NULL AUTO_INCREMENT,
				posted_by BIGINT NOT NULL,
				message_text VARCHAR(255) NOT NULL,
				time_posted_epoch BIGINT NOT NULL,
				PRIMARY KEY (message_id),
				INDEX idx_message_posted_by (posted_by),
				CONSTRAINT fk_message_account FOREIGN KEY (posted_by) REFERENCES account(account_id)
			) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
		}
	case DriverPostgres:
		stmts = []string{
			`CREATE TABLE IF NOT EXISTS account (
				account_id BIGSERIAL PRIMARY KEY,
				username VARCHAR(255) NOT NULL UNIQUE,
				password VARCHAR(255) NOT NULL
			)`,
			`CREATE TABLE IF NOT EXISTS message (
				message_id BIGSERIAL PRIMARY KEY,
				posted_by BIGINT NOT NULL REFERENCES account(account_id),
				message_text VARCHAR(255) NOT NULL,
				time_posted_epoch BIGINT NOT NULL
			)`,
			`CREATE INDEX IF NOT EXISTS idx_message_posted_by ON message(posted_by)`,
		}
	default:
		return fmt.Errorf("unsupported driver for migration: %s", dbType)
	}

	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("migrate (%s): %w", dbType, err)
		}
	}
	return nil
}
