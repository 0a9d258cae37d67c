package address

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/nbd-wtf/go-nostr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/myxmaster/zeus/constants"
	"github.com/myxmaster/zeus/decodepay"
)

// bolt11 test vector: 2500u (250 000 000 msat), payment hash
// 000102...090102, "1 cup coffee".
const (
	testInvoice     = "lnbc2500u1pvjluezpp5qqqsyqcyq5rqwzqfqqqsyqcyq5rqwzqfqqqsyqcyq5rqwzqfqypqdq5xysxxatsyp3k7enxv4jsxqzpuaztrnwngzn3kdzw5hydlzf03qdgm2hdq27cqv3agm2awhz5se903vruatfhq77w3ls4evs3ch9zw97j25emudupq63nyw24cg27h2rspfj9srp"
	testInvoiceHash = "0001020304050607080900010203040506070809000102030405060708090102"
	testInvoiceMsat = uint64(250_000_000)
)

// amount the recipient keeps so that amount + default fee equals the
// invoice amount
const testReceivedMsat = testInvoiceMsat - constants.DEFAULT_FEE_MSAT

// mainnet invoice without an amount field
const testAmountlessInvoice = "lnbc1pjkkc4qpp506g22474pc5lle9nkwd2sgp2uk8muyxa79fga5dc9xfxwst0dwjqdz9235xjueqd9ejqcfqwd5k6urvv5sxjmnkda5kxefqveex7mfq2dkx7apqf4skx6rfdejjucqzzsxqyz5vqrzjqtqd37k2ya0pv8pqeyjs4lklcexjyw600g9qqp62r4j0ph8fcmlfwqqqqqysrpfykyqqqqqqqqqqqqqq9qsp5x88g0rk9e4qnsc6hgf4mrllrhu2f94psqkun9j4007pd0ts9ktcs9qyyssqdrq33g2nze886y98p0jsrezyva2jqqe3kgxaexrz0p470d7hpxrnxy5z3x9sdk0x3s23v0g78f2vgq7lckkp0gk7as5kxaygjzec0acpm7nz5l"

func attestationEvent(id string, content string) *nostr.Event {
	return &nostr.Event{
		ID:      id,
		Kind:    constants.ATTESTATION_EVENT_KIND,
		Content: content,
	}
}

func TestAnalyzeAttestation_Valid(t *testing.T) {
	attestation := AnalyzeAttestation(attestationEvent("e1", testInvoice), testInvoiceHash, testReceivedMsat, nil)

	assert.True(t, attestation.IsValidLightningInvoice)
	assert.True(t, attestation.IsHashValid)
	assert.True(t, attestation.IsAmountValid)
	assert.True(t, attestation.IsValid)
	assert.Equal(t, testInvoiceMsat, attestation.Millisatoshis)
	assert.Equal(t, uint64(constants.DEFAULT_FEE_MSAT), attestation.FeeMsat)
}

func TestAnalyzeAttestation_NotAnInvoice(t *testing.T) {
	attestation := AnalyzeAttestation(attestationEvent("e1", "certainly not an invoice"), testInvoiceHash, testReceivedMsat, nil)

	assert.False(t, attestation.IsValidLightningInvoice)
	assert.False(t, attestation.IsValid)
}

func TestAnalyzeAttestation_WrongHash(t *testing.T) {
	otherHash := "ff01020304050607080900010203040506070809000102030405060708090102"
	attestation := AnalyzeAttestation(attestationEvent("e1", testInvoice), otherHash, testReceivedMsat, nil)

	assert.True(t, attestation.IsValidLightningInvoice)
	assert.False(t, attestation.IsHashValid)
	assert.False(t, attestation.IsValid)
}

func TestAnalyzeAttestation_WrongAmount(t *testing.T) {
	// claims 250 000 000 msat but only 200 000 000 plus fee was expected
	attestation := AnalyzeAttestation(attestationEvent("e1", testInvoice), testInvoiceHash, 200_000_000, nil)

	assert.True(t, attestation.IsHashValid)
	assert.False(t, attestation.IsAmountValid)
	assert.False(t, attestation.IsValid)
}

func TestAnalyzeAttestation_AmountlessInvoice(t *testing.T) {
	// A claim that omits the amount commits to nothing about how much
	// was received and must not be accepted, even with a matching hash.
	decoded, err := decodepay.Decodepay(testAmountlessInvoice)
	require.NoError(t, err)

	attestation := AnalyzeAttestation(attestationEvent("e1", testAmountlessInvoice), decoded.PaymentHash, testReceivedMsat, nil)

	assert.True(t, attestation.IsValidLightningInvoice)
	assert.True(t, attestation.IsHashValid)
	assert.False(t, attestation.IsAmountValid)
	assert.False(t, attestation.IsValid)
	assert.Equal(t, uint64(0), attestation.Millisatoshis)
}

type mockRelayPool struct {
	mu      sync.Mutex
	events  map[string][]*nostr.Event
	errs    map[string]error
	filters []nostr.Filter
}

func (pool *mockRelayPool) QueryEvents(ctx context.Context, relayUrl string, filter nostr.Filter) ([]*nostr.Event, error) {
	pool.mu.Lock()
	pool.filters = append(pool.filters, filter)
	pool.mu.Unlock()

	if err, ok := pool.errs[relayUrl]; ok {
		return nil, err
	}
	return pool.events[relayUrl], nil
}

func TestLookupAttestations_NoneFound(t *testing.T) {
	pool := &mockRelayPool{}

	result, err := LookupAttestations(context.Background(), pool, []string{"wss://r1", "wss://r2"}, testInvoiceHash, testReceivedMsat, nil)
	require.NoError(t, err)

	assert.Empty(t, result.Attestations)
	assert.Equal(t, AttestationStatusWarning, result.Status)
}

func TestLookupAttestations_SingleValid(t *testing.T) {
	pool := &mockRelayPool{
		events: map[string][]*nostr.Event{
			"wss://r1": {attestationEvent("e1", testInvoice)},
		},
	}

	result, err := LookupAttestations(context.Background(), pool, []string{"wss://r1", "wss://r2"}, testInvoiceHash, testReceivedMsat, nil)
	require.NoError(t, err)

	require.Len(t, result.Attestations, 1)
	assert.Equal(t, AttestationStatusSuccess, result.Status)

	// queries target the pubkey derived from the payment hash
	hashPubkey, err := nostr.GetPublicKey(testInvoiceHash)
	require.NoError(t, err)
	require.Len(t, pool.filters, 2)
	for _, filter := range pool.filters {
		assert.Equal(t, []int{constants.ATTESTATION_EVENT_KIND}, filter.Kinds)
		assert.Equal(t, []string{hashPubkey}, filter.Tags["p"])
	}
}

func TestLookupAttestations_SingleInvalid(t *testing.T) {
	pool := &mockRelayPool{
		events: map[string][]*nostr.Event{
			"wss://r1": {attestationEvent("e1", "garbage")},
		},
	}

	result, err := LookupAttestations(context.Background(), pool, []string{"wss://r1"}, testInvoiceHash, testReceivedMsat, nil)
	require.NoError(t, err)

	require.Len(t, result.Attestations, 1)
	assert.Equal(t, AttestationStatusError, result.Status)
}

func TestLookupAttestations_AmountlessClaimRejected(t *testing.T) {
	decoded, err := decodepay.Decodepay(testAmountlessInvoice)
	require.NoError(t, err)

	pool := &mockRelayPool{
		events: map[string][]*nostr.Event{
			"wss://r1": {attestationEvent("e1", testAmountlessInvoice)},
		},
	}

	result, err := LookupAttestations(context.Background(), pool, []string{"wss://r1"}, decoded.PaymentHash, testReceivedMsat, nil)
	require.NoError(t, err)

	require.Len(t, result.Attestations, 1)
	assert.False(t, result.Attestations[0].IsValid)
	assert.Equal(t, AttestationStatusError, result.Status)
}

func TestLookupAttestations_ConflictingClaims(t *testing.T) {
	pool := &mockRelayPool{
		events: map[string][]*nostr.Event{
			"wss://r1": {attestationEvent("e1", testInvoice)},
			"wss://r2": {attestationEvent("e2", testInvoice)},
		},
	}

	result, err := LookupAttestations(context.Background(), pool, []string{"wss://r1", "wss://r2"}, testInvoiceHash, testReceivedMsat, nil)
	require.NoError(t, err)

	require.Len(t, result.Attestations, 2)
	assert.Equal(t, AttestationStatusError, result.Status)
}

func TestLookupAttestations_DeduplicatesAcrossRelays(t *testing.T) {
	pool := &mockRelayPool{
		events: map[string][]*nostr.Event{
			"wss://r1": {attestationEvent("e1", testInvoice)},
			"wss://r2": {attestationEvent("e1", testInvoice)},
		},
	}

	result, err := LookupAttestations(context.Background(), pool, []string{"wss://r1", "wss://r2"}, testInvoiceHash, testReceivedMsat, nil)
	require.NoError(t, err)

	require.Len(t, result.Attestations, 1)
	assert.Equal(t, AttestationStatusSuccess, result.Status)
}

func TestLookupAttestations_RelayFailureIsIsolated(t *testing.T) {
	pool := &mockRelayPool{
		events: map[string][]*nostr.Event{
			"wss://good": {attestationEvent("e1", testInvoice)},
		},
		errs: map[string]error{
			"wss://bad": errors.New("connection refused"),
		},
	}

	result, err := LookupAttestations(context.Background(), pool, []string{"wss://bad", "wss://good"}, testInvoiceHash, testReceivedMsat, nil)
	require.NoError(t, err)

	require.Len(t, result.Attestations, 1)
	assert.Equal(t, AttestationStatusSuccess, result.Status)
}

func TestLookupAttestations_InvalidHash(t *testing.T) {
	pool := &mockRelayPool{}

	_, err := LookupAttestations(context.Background(), pool, []string{"wss://r1"}, "not-hex", 0, nil)
	assert.Error(t, err)
}
