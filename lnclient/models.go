// Package lnclient defines the boundary to the user's Lightning node.
// The redemption flow only needs a node-identity signer, an invoice
// issuer/lookup and enough channel info to judge receive readiness.
package lnclient

import (
	"context"
	"errors"
)

// ErrInvoiceNotFound is returned by LookupInvoice when the node has no
// invoice for the given payment hash.
var ErrInvoiceNotFound = errors.New("invoice not found")

type LNClient interface {
	GetInfo(ctx context.Context) (*NodeInfo, error)
	GetPubkey() string
	// SignMessage signs a message with the node identity key. LND
	// returns a zbase32-encoded recoverable signature.
	SignMessage(ctx context.Context, message string) (string, error)
	MakeInvoice(ctx context.Context, req *MakeInvoiceRequest) (*Transaction, error)
	LookupInvoice(ctx context.Context, paymentHash string) (*Transaction, error)
	ListChannels(ctx context.Context) ([]Channel, error)
	Shutdown() error
}

type NodeInfo struct {
	Alias         string
	Pubkey        string
	Network       string
	BlockHeight   uint32
	SyncedToChain bool
	SyncedToGraph bool
}

type MakeInvoiceRequest struct {
	// AmountMsat of 0 creates an amountless invoice, letting the
	// backend pick the amount (used with just-in-time channel opens).
	AmountMsat int64
	Memo       string
	// Preimage pins the invoice to a pre-registered payment hash.
	Preimage string
	Expiry   int64
	Private  bool
}

type Transaction struct {
	Invoice     string
	PaymentHash string
	Preimage    string
	AmountMsat  int64
	SettledAt   *int64
	ExpiresAt   *int64
}

type Channel struct {
	ID                   string
	RemotePubkey         string
	Active               bool
	Public               bool
	LocalBalanceMsat     int64
	RemoteBalanceMsat    int64
	UnsettledBalanceMsat int64
}
