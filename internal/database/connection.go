package database

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
)

// testDB lets tests substitute a mock connection.
var testDB *sql.DB

// SetTestDB overrides the connection returned by Open-side consumers during
// tests. Pass nil to restore normal behaviour.
func SetTestDB(db *sql.DB) {
	testDB = db
}

// Open connects with the configured driver and applies pool tuning. The
// connection is verified with a ping before it is returned.
func Open(dsn string) (*sql.DB, error) {
	if testDB != nil {
		return testDB, nil
	}

	driver := GetDBDriver()
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s connection: %w", driver, err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(time.Minute)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping %s: %w", driver, err)
	}

	return db, nil
}
