// Package keys manages the Nostr identity key used to sign payment hash
// commitments and the relay list.
package keys

import (
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	"github.com/nbd-wtf/go-nostr"

	"github.com/myxmaster/zeus/config"
	"github.com/myxmaster/zeus/logger"
)

type Keys interface {
	Init(cfg config.Config) error
	// GetNostrPublicKey returns the hex nostr public key of the identity.
	GetNostrPublicKey() string
	// GetNostrSecretKey returns the hex nostr secret key of the identity.
	GetNostrSecretKey() string
	// SignHash produces a BIP-340 Schnorr signature over a 32-byte hex digest.
	SignHash(hashHex string) (string, error)
}

type keys struct {
	nostrSecretKey string
	nostrPublicKey string
}

func NewKeys() *keys {
	return &keys{}
}

func (keys *keys) Init(cfg config.Config) error {
	nostrSecretKey, err := cfg.Get(config.NostrSecretKeyKey)
	if err != nil {
		return err
	}

	if nostrSecretKey == "" {
		nostrSecretKey = nostr.GeneratePrivateKey()
		err = cfg.SetUpdate(config.NostrSecretKeyKey, nostrSecretKey)
		if err != nil {
			logger.Logger.Error().Err(err).Msg("Failed to save nostr secret key")
			return err
		}
		logger.Logger.Info().Msg("Generated new nostr identity key")
	}

	nostrPublicKey, err := nostr.GetPublicKey(nostrSecretKey)
	if err != nil {
		logger.Logger.Error().Err(err).Msg("Error deriving nostr public key")
		return err
	}

	keys.nostrSecretKey = nostrSecretKey
	keys.nostrPublicKey = nostrPublicKey
	return nil
}

func (keys *keys) GetNostrPublicKey() string {
	return keys.nostrPublicKey
}

func (keys *keys) GetNostrSecretKey() string {
	return keys.nostrSecretKey
}

func (keys *keys) SignHash(hashHex string) (string, error) {
	if keys.nostrSecretKey == "" {
		return "", errors.New("keys not initialized")
	}

	digest, err := hex.DecodeString(hashHex)
	if err != nil {
		return "", fmt.Errorf("invalid digest hex: %w", err)
	}
	if len(digest) != 32 {
		return "", fmt.Errorf("digest must be 32 bytes, got %d", len(digest))
	}

	secretKeyBytes, err := hex.DecodeString(keys.nostrSecretKey)
	if err != nil {
		return "", fmt.Errorf("invalid secret key hex: %w", err)
	}
	privKey, _ := btcec.PrivKeyFromBytes(secretKeyBytes)

	signature, err := schnorr.Sign(privKey, digest)
	if err != nil {
		return "", err
	}

	return hex.EncodeToString(signature.Serialize()), nil
}
