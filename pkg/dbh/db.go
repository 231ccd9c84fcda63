package dbh

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/migration"
	"github.com/cyclopcam/scenereel/pkg/log"
	_ "github.com/mattn/go-sqlite3"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/gorm/schema"
)

// DBConnectFlags are flags passed to OpenDB.
type DBConnectFlags int

const DriverSqlite = "sqlite3"

const (
	// DBConnectFlagWipeDB causes the DB to erased, and re-initialized from scratch (useful for unit tests).
	DBConnectFlagWipeDB DBConnectFlags = 1 << iota
)

// MakeMigrations turns a sequence of SQL expression into burntsushi migrations.
func MakeMigrations(log log.Log, sql []string) []migration.Migrator {
	migs := []migration.Migrator{}
	idx := 0
	for _, str := range sql {
		migs = append(migs, MakeMigrationFromSQL(log, &idx, str))
	}
	return migs
}

// MakeMigrationFromSQL turns an SQL string into a burntsushi migration
func MakeMigrationFromSQL(log log.Log, migrationNumber *int, sql string) migration.Migrator {
	*migrationNumber++
	idx := *migrationNumber

	return func(tx migration.LimitedTx) error {
		log.Infof("Running migration %v: '%v...'", idx, migrationSummary(sql))
		_, err := tx.Exec(sql)
		return err
	}
}

// First line of the SQL, capped at 40 characters
func migrationSummary(sql string) string {
	summary := strings.TrimSpace(sql)
	l := len(summary)
	if l > 40 {
		l = 40
	}
	if nl := strings.IndexAny(summary, "\n\r"); nl != -1 && nl < l {
		l = nl
	}
	return summary[:l]
}

// OpenDB creates a new sqlite DB, or opens an existing one, and runs all the migrations before returning.
func OpenDB(log log.Log, filename string, migrations []migration.Migrator, flags DBConnectFlags) (*gorm.DB, error) {
	if flags&DBConnectFlagWipeDB != 0 {
		if err := os.Remove(filename); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
	}

	db, err := migration.Open(DriverSqlite, filename, migrations)
	if err != nil {
		return nil, fmt.Errorf("Failed to migrate database %v: %w", filename, err)
	}
	db.Close()
	return gormOpen(log, filename)
}

// gormWriter routes gorm's warnings into our log
type gormWriter struct {
	log log.Log
}

func (w gormWriter) Printf(format string, args ...any) {
	w.log.Warnf(strings.TrimSpace(format), args...)
}

func gormOpen(log log.Log, filename string) (*gorm.DB, error) {
	newLogger := logger.New(
		gormWriter{log},
		logger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true, // Record not found is an expected result, not a loggable event
			Colorful:                  false,
		},
	)

	config := &gorm.Config{
		NamingStrategy: schema.NamingStrategy{
			// Our migrations are hand-written, so table names must be predictable
			SingularTable: true,
		},
		Logger: newLogger,
	}
	db, err := gorm.Open(sqlite.Open(filename), config)
	if err != nil {
		return nil, err
	}
	return db, nil
}
