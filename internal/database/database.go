package database

import (
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/spf13/viper"
)

// Connect opens the Postgres record source. Reads are short and bursty (one
// pass per reload), so the pool stays small.
func Connect() (*sqlx.DB, error) {
	dsn := viper.GetString("DB_DSN")
	db, err := sqlx.Connect("pgx", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(4)
	db.SetConnMaxIdleTime(5 * time.Minute)
	return db, nil
}
