// Package address implements the ZEUS PAY Lightning address flow:
// preimage vault management, attestation verification and automatic
// redemption of pending payments against the remote LNURL service.
package address

import (
	"github.com/shopspring/decimal"
)

// PendingPayment is one entry of the status response. Snapshots are
// replaced wholesale on every refresh, never mutated in place.
type PendingPayment struct {
	Hash                 string `json:"hash"`
	AmountMsat           uint64 `json:"amount_msat"`
	Comment              string `json:"comment,omitempty"`
	Hodl                 string `json:"hodl,omitempty"`
	OpenedChannel        bool   `json:"opened_channel,omitempty"`
	OpenedChannelFeeMsat uint64 `json:"opened_channel_fee_msat,omitempty"`

	// FeeSats is derived locally from the hodl invoice for display; it
	// is not part of the wire format.
	FeeSats *decimal.Decimal `json:"fee,omitempty"`
}

// FeeRule is one entry of the service's tiered fee table. Rules are
// evaluated in list order and the first match wins.
type FeeRule struct {
	LimitAmount    decimal.Decimal `json:"limitAmount"`
	LimitQualifier string          `json:"limitQualifier"`
	Fee            decimal.Decimal `json:"fee"`
	FeeQualifier   string          `json:"feeQualifier"`
}

const (
	LimitQualifierLt  = "lt"
	LimitQualifierLte = "lte"
	LimitQualifierGt  = "gt"
	LimitQualifierGte = "gte"

	FeeQualifierFixedSats  = "fixedSats"
	FeeQualifierPercentage = "percentage"
)

// Attestation is the verdict over a single third-party payment claim.
// Derived per lookup, never persisted.
type Attestation struct {
	EventID                 string `json:"event_id"`
	Content                 string `json:"content"`
	IsValidLightningInvoice bool   `json:"is_valid_lightning_invoice"`
	IsHashValid             bool   `json:"is_hash_valid"`
	IsAmountValid           bool   `json:"is_amount_valid"`
	IsValid                 bool   `json:"is_valid"`
	Millisatoshis           uint64 `json:"millisatoshis,omitempty"`
	FeeMsat                 uint64 `json:"fee_msat,omitempty"`
}

type AttestationStatus string

const (
	// No attestation found. Acceptable at the permissive level.
	AttestationStatusWarning AttestationStatus = "warning"
	// Exactly one attestation found and it checks out.
	AttestationStatusSuccess AttestationStatus = "success"
	// A single invalid attestation, or conflicting claims. Never
	// auto-trusted.
	AttestationStatusError AttestationStatus = "error"
)

type AttestationResult struct {
	Attestations []Attestation     `json:"attestations"`
	Status       AttestationStatus `json:"status"`
}

// Status is the session's view of the remote service state after the
// latest refresh.
type Status struct {
	Handle          string           `json:"handle"`
	Domain          string           `json:"domain"`
	AvailableHashes int64            `json:"available_hashes"`
	Paid            []PendingPayment `json:"paid"`
	Settled         []PendingPayment `json:"settled"`
	Fees            []FeeRule        `json:"fees"`
	MinimumSats     uint64           `json:"minimum_sats"`
}

// PaymentRedeemedProperties is attached to redemption events on the bus.
type PaymentRedeemedProperties struct {
	Hash       string `json:"hash"`
	AmountMsat uint64 `json:"amount_msat"`
	Comment    string `json:"comment,omitempty"`
}
