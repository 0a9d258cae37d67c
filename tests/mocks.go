// Package tests provides shared fixtures for package tests.
package tests

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/tv42/zbase32"

	"github.com/myxmaster/zeus/lnclient"
)

const lightningSignedMessagePrefix = "Lightning Signed Message:"

// MockLNClient is an in-memory node backend. SignMessage produces real
// LND-style signatures (zbase32 over a compact recoverable signature of
// the double-sha256 tagged message) so auth flows exercise actual
// signing.
type MockLNClient struct {
	privKey *btcec.PrivateKey

	NodeInfo lnclient.NodeInfo
	Channels []lnclient.Channel

	// Invoices known to LookupInvoice, keyed by payment hash.
	Invoices map[string]*lnclient.Transaction
	// MakeInvoiceErr, when set, fails invoice creation.
	MakeInvoiceErr error

	mu           sync.Mutex
	madeInvoices []lnclient.MakeInvoiceRequest
}

func NewMockLNClient() (*MockLNClient, error) {
	privKey, err := btcec.NewPrivateKey()
	if err != nil {
		return nil, err
	}

	return &MockLNClient{
		privKey: privKey,
		NodeInfo: lnclient.NodeInfo{
			Alias:         "mock",
			Pubkey:        hex.EncodeToString(privKey.PubKey().SerializeCompressed()),
			Network:       "regtest",
			BlockHeight:   100,
			SyncedToChain: true,
			SyncedToGraph: true,
		},
		Channels: []lnclient.Channel{
			{
				ID:                "1",
				RemotePubkey:      "peer",
				Active:            true,
				Public:            true,
				LocalBalanceMsat:  1_000_000,
				RemoteBalanceMsat: 5_000_000,
			},
		},
		Invoices: map[string]*lnclient.Transaction{},
	}, nil
}

func (mock *MockLNClient) GetInfo(ctx context.Context) (*lnclient.NodeInfo, error) {
	nodeInfo := mock.NodeInfo
	return &nodeInfo, nil
}

func (mock *MockLNClient) GetPubkey() string {
	return mock.NodeInfo.Pubkey
}

func (mock *MockLNClient) SignMessage(ctx context.Context, message string) (string, error) {
	digest := chainhash.DoubleHashB(append([]byte(lightningSignedMessagePrefix), []byte(message)...))
	signature := ecdsa.SignCompact(mock.privKey, digest, true)
	return zbase32.EncodeToString(signature), nil
}

func (mock *MockLNClient) MakeInvoice(ctx context.Context, req *lnclient.MakeInvoiceRequest) (*lnclient.Transaction, error) {
	if mock.MakeInvoiceErr != nil {
		return nil, mock.MakeInvoiceErr
	}

	mock.mu.Lock()
	mock.madeInvoices = append(mock.madeInvoices, *req)
	mock.mu.Unlock()

	paymentHash := ""
	if req.Preimage != "" {
		preimageBytes, err := hex.DecodeString(req.Preimage)
		if err != nil {
			return nil, err
		}
		hash := sha256.Sum256(preimageBytes)
		paymentHash = hex.EncodeToString(hash[:])
	}

	return &lnclient.Transaction{
		Invoice:     fmt.Sprintf("lnmock1%s", paymentHash),
		PaymentHash: paymentHash,
		Preimage:    req.Preimage,
		AmountMsat:  req.AmountMsat,
	}, nil
}

func (mock *MockLNClient) LookupInvoice(ctx context.Context, paymentHash string) (*lnclient.Transaction, error) {
	transaction, ok := mock.Invoices[paymentHash]
	if !ok {
		return nil, lnclient.ErrInvoiceNotFound
	}
	return transaction, nil
}

func (mock *MockLNClient) ListChannels(ctx context.Context) ([]lnclient.Channel, error) {
	return mock.Channels, nil
}

func (mock *MockLNClient) Shutdown() error {
	return nil
}

// MadeInvoices returns the invoice creation requests seen so far.
func (mock *MockLNClient) MadeInvoices() []lnclient.MakeInvoiceRequest {
	mock.mu.Lock()
	defer mock.mu.Unlock()
	return append([]lnclient.MakeInvoiceRequest(nil), mock.madeInvoices...)
}
