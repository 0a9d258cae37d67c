package migrations

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/gorm"
)

var redeemedPaymentsMigration = &gormigrate.Migration{
	ID: "202508201030_redeemed_payments",
	Migrate: func(tx *gorm.DB) error {
		return tx.Exec(`
CREATE TABLE IF NOT EXISTS redeemed_payments (
	id integer PRIMARY KEY AUTOINCREMENT,
	payment_hash text UNIQUE NOT NULL,
	amount_msat integer,
	comment text,
	created_at datetime
);
`).Error
	},
	Rollback: func(tx *gorm.DB) error {
		return tx.Exec("DROP TABLE redeemed_payments;").Error
	},
}
