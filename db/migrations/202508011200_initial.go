package migrations

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/gorm"
)

var initialMigration = &gormigrate.Migration{
	ID: "202508011200_initial",
	Migrate: func(tx *gorm.DB) error {
		return tx.Exec(`
CREATE TABLE IF NOT EXISTS user_configs (
	id integer PRIMARY KEY AUTOINCREMENT,
	key text UNIQUE NOT NULL,
	value text,
	created_at datetime,
	updated_at datetime
);
CREATE TABLE IF NOT EXISTS preimages (
	id integer PRIMARY KEY AUTOINCREMENT,
	hash text UNIQUE NOT NULL,
	preimage text NOT NULL,
	created_at datetime,
	updated_at datetime
);
CREATE INDEX IF NOT EXISTS idx_preimages_hash ON preimages (hash);
`).Error
	},
	Rollback: func(tx *gorm.DB) error {
		return tx.Exec("DROP TABLE preimages; DROP TABLE user_configs;").Error
	},
}
