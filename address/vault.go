package address

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/tyler-smith/go-bip39"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/myxmaster/zeus/db"
	"github.com/myxmaster/zeus/keys"
	"github.com/myxmaster/zeus/logger"
)

type notFoundError struct{}

func NewNotFoundError() error {
	return &notFoundError{}
}

func (err *notFoundError) Error() string {
	return "no preimage found for the requested hash"
}

// Vault generates payment preimages and stores them keyed by their
// hash, so that an incoming payment identified only by hash can be
// matched back to its preimage at redemption time.
type Vault struct {
	db   *gorm.DB
	keys keys.Keys
}

func NewVault(gormDB *gorm.DB, keys keys.Keys) *Vault {
	return &Vault{
		db:   gormDB,
		keys: keys,
	}
}

// GenerateBatch creates count fresh preimages, persists them and
// returns their hashes in generation order. When a nostr signing key
// is configured, each hash is also schnorr-signed so the service can
// later prove which wallet submitted it; signatures[i] belongs to
// hashes[i].
func (vault *Vault) GenerateBatch(count int) (hashes []string, signatures []string, err error) {
	sign := vault.keys != nil && vault.keys.GetNostrSecretKey() != ""

	records := make([]db.Preimage, 0, count)
	for range count {
		entropy, err := bip39.NewEntropy(256)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to generate entropy: %w", err)
		}
		hash := sha256.Sum256(entropy)
		hashHex := hex.EncodeToString(hash[:])

		if sign {
			signature, err := vault.keys.SignHash(hashHex)
			if err != nil {
				return nil, nil, fmt.Errorf("failed to sign hash: %w", err)
			}
			signatures = append(signatures, signature)
		}

		hashes = append(hashes, hashHex)
		records = append(records, db.Preimage{
			Hash:     hashHex,
			Preimage: hex.EncodeToString(entropy),
		})
	}

	err = vault.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "hash"}},
		DoNothing: true,
	}).Create(&records).Error
	if err != nil {
		logger.Logger.Error().Err(err).Msg("Failed to store preimage batch")
		return nil, nil, err
	}

	logger.Logger.Info().Int("count", count).Msg("Generated new preimage batch")

	return hashes, signatures, nil
}

// Lookup returns the hex preimage for a payment hash, or a not found
// error when the hash was never generated by this vault.
func (vault *Vault) Lookup(hash string) (string, error) {
	var preimage db.Preimage
	result := vault.db.Limit(1).Find(&preimage, &db.Preimage{Hash: hash})
	if result.Error != nil {
		return "", result.Error
	}
	if result.RowsAffected == 0 {
		return "", NewNotFoundError()
	}
	return preimage.Preimage, nil
}

// Count reports how many preimages are stored locally.
func (vault *Vault) Count() (int64, error) {
	var count int64
	err := vault.db.Model(&db.Preimage{}).Count(&count).Error
	return count, err
}
