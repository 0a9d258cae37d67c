package address

import (
	"context"
	"sync"
	"time"

	"github.com/nbd-wtf/go-nostr"

	"github.com/myxmaster/zeus/constants"
	"github.com/myxmaster/zeus/decodepay"
	"github.com/myxmaster/zeus/logger"
)

const relayQueryTimeout = 15 * time.Second

// RelayPool queries nostr relays for events. Abstracted so tests can
// serve canned events without a live relay.
type RelayPool interface {
	QueryEvents(ctx context.Context, relayUrl string, filter nostr.Filter) ([]*nostr.Event, error)
}

type relayPool struct{}

func NewRelayPool() RelayPool {
	return &relayPool{}
}

func (pool *relayPool) QueryEvents(ctx context.Context, relayUrl string, filter nostr.Filter) ([]*nostr.Event, error) {
	relay, err := nostr.RelayConnect(ctx, relayUrl)
	if err != nil {
		return nil, err
	}
	defer relay.Close()

	return relay.QuerySync(ctx, filter)
}

// AnalyzeAttestation checks a single claim event against the payment it
// refers to. The event content must be a bolt11 invoice whose payment
// hash matches and whose amount equals the received amount plus the
// service fee. An amountless invoice proves nothing about the amount,
// so it fails the amount check.
func AnalyzeAttestation(event *nostr.Event, targetHash string, targetAmountMsat uint64, rules []FeeRule) Attestation {
	attestation := Attestation{
		EventID: event.ID,
		Content: event.Content,
	}

	decoded, err := decodepay.Decodepay(event.Content)
	if err != nil {
		logger.Logger.Debug().Err(err).
			Str("event_id", event.ID).
			Msg("Attestation content is not a decodable invoice")
		return attestation
	}

	attestation.IsValidLightningInvoice = true
	attestation.IsHashValid = decoded.PaymentHash == targetHash

	if decoded.MSatoshi > 0 {
		attestation.Millisatoshis = uint64(decoded.MSatoshi)
		attestation.FeeMsat = CalculateFeeMsat(attestation.Millisatoshis, rules)
		attestation.IsAmountValid = targetAmountMsat+attestation.FeeMsat == attestation.Millisatoshis
	}

	attestation.IsValid = attestation.IsValidLightningInvoice &&
		attestation.IsHashValid &&
		attestation.IsAmountValid

	return attestation
}

// LookupAttestations queries every relay for claims tagging the pubkey
// derived from the payment hash, deduplicates by event id and returns
// the aggregate verdict. A relay that fails or times out contributes
// nothing; it never fails the lookup as a whole.
func LookupAttestations(ctx context.Context, pool RelayPool, relays []string, targetHash string, targetAmountMsat uint64, rules []FeeRule) (*AttestationResult, error) {
	// The service publishes claims to the pubkey whose secret key is
	// the payment hash, so anyone holding the hash can look them up.
	hashPubkey, err := nostr.GetPublicKey(targetHash)
	if err != nil {
		return nil, err
	}

	filter := nostr.Filter{
		Kinds: []int{constants.ATTESTATION_EVENT_KIND},
		Tags: nostr.TagMap{
			"p": []string{hashPubkey},
		},
	}

	var mu sync.Mutex
	eventsById := map[string]*nostr.Event{}

	var wg sync.WaitGroup
	for _, relayUrl := range relays {
		wg.Add(1)
		go func(relayUrl string) {
			defer wg.Done()

			queryCtx, cancel := context.WithTimeout(ctx, relayQueryTimeout)
			defer cancel()

			events, err := pool.QueryEvents(queryCtx, relayUrl, filter)
			if err != nil {
				logger.Logger.Warn().Err(err).
					Str("relay", relayUrl).
					Str("payment_hash", targetHash).
					Msg("Failed to query relay for attestations")
				return
			}

			mu.Lock()
			defer mu.Unlock()
			for _, event := range events {
				eventsById[event.ID] = event
			}
		}(relayUrl)
	}
	wg.Wait()

	result := &AttestationResult{
		Attestations: []Attestation{},
	}
	for _, event := range eventsById {
		result.Attestations = append(result.Attestations,
			AnalyzeAttestation(event, targetHash, targetAmountMsat, rules))
	}

	switch {
	case len(result.Attestations) == 0:
		result.Status = AttestationStatusWarning
	case len(result.Attestations) == 1 && result.Attestations[0].IsValid:
		result.Status = AttestationStatusSuccess
	default:
		// Multiple claims are contradictory even if each one looks
		// valid on its own.
		result.Status = AttestationStatusError
	}

	return result, nil
}
