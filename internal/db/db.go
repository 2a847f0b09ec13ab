// Package db opens the SQL store that backs user profiles.
package db

import (
	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog"
)

type DB interface {
	InitDB() error

	Get() *sqlx.DB
	Close() error
}

var dbLogger zerolog.Logger

func SetLogger(l zerolog.Logger) {
	dbLogger = l
}
