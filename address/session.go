package address

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/myxmaster/zeus/config"
	"github.com/myxmaster/zeus/constants"
	"github.com/myxmaster/zeus/db"
	"github.com/myxmaster/zeus/decodepay"
	"github.com/myxmaster/zeus/events"
	"github.com/myxmaster/zeus/keys"
	"github.com/myxmaster/zeus/lnclient"
	"github.com/myxmaster/zeus/logger"
)

const readinessPollInterval = 3 * time.Second

// Session drives the Lightning address account: it keeps the status
// snapshot fresh, tops up the hash inventory, verifies attestations and
// redeems held payments.
type Session struct {
	cfg            config.Config
	db             *gorm.DB
	lnClient       lnclient.LNClient
	client         *ServiceClient
	vault          *Vault
	keys           keys.Keys
	pool           RelayPool
	eventPublisher events.EventPublisher

	statusMu sync.RWMutex
	status   *Status

	ready       atomic.Bool
	subscribed  atomic.Bool
	generating  atomic.Bool
	redeemGroup singleflight.Group
}

func NewSession(cfg config.Config, gormDB *gorm.DB, lnClient lnclient.LNClient, client *ServiceClient, vault *Vault, appKeys keys.Keys, pool RelayPool, eventPublisher events.EventPublisher) *Session {
	return &Session{
		cfg:            cfg,
		db:             gormDB,
		lnClient:       lnClient,
		client:         client,
		vault:          vault,
		keys:           appKeys,
		pool:           pool,
		eventPublisher: eventPublisher,
	}
}

// Ready reports whether the node has been judged able to receive and
// automatic acceptance is live.
func (session *Session) Ready() bool {
	return session.ready.Load()
}

// GetStatus returns the last status snapshot, or nil before the first
// successful refresh.
func (session *Session) GetStatus() *Status {
	session.statusMu.RLock()
	defer session.statusMu.RUnlock()
	return session.status
}

// RefreshStatus fetches a fresh account snapshot from the service and
// replaces the cached one. A low hash inventory triggers an async
// top-up.
func (session *Session) RefreshStatus(ctx context.Context) (*Status, error) {
	return session.refreshStatus(ctx, true)
}

func (session *Session) refreshStatus(ctx context.Context, topUp bool) (*Status, error) {
	resp, err := session.client.GetStatus(ctx)
	if err != nil {
		logger.Logger.Error().Err(err).Msg("Failed to refresh lnurl status")
		return nil, err
	}

	status := &Status{
		Handle:          resp.Handle,
		Domain:          resp.Domain,
		AvailableHashes: resp.Results,
		Paid:            enhanceWithFee(resp.Paid),
		Settled:         enhanceWithFee(resp.Settled),
		Fees:            resp.Fees,
		MinimumSats:     resp.MinimumSats,
	}

	session.statusMu.Lock()
	session.status = status
	session.statusMu.Unlock()

	if topUp && status.Handle != "" && status.AvailableHashes < constants.PREIMAGE_LOW_WATERMARK {
		go session.topUpPreimages(context.WithoutCancel(ctx))
	}

	return status, nil
}

// enhanceWithFee derives the display fee of each payment from its hodl
// invoice: the invoice amount minus the amount the recipient keeps.
func enhanceWithFee(payments []PendingPayment) []PendingPayment {
	for i := range payments {
		if payments[i].Hodl == "" {
			continue
		}
		decoded, err := decodepay.Decodepay(payments[i].Hodl)
		if err != nil || decoded.MSatoshi <= 0 {
			continue
		}
		fee := decimal.NewFromInt(decoded.MSatoshi).
			Sub(decimal.NewFromUint64(payments[i].AmountMsat)).
			Div(oneThousand)
		payments[i].FeeSats = &fee
	}
	return payments
}

// GeneratePreimages creates a fresh batch of preimages and registers
// their hashes with the service.
func (session *Session) GeneratePreimages(ctx context.Context) error {
	hashes, signatures, err := session.vault.GenerateBatch(constants.PREIMAGE_BATCH_SIZE)
	if err != nil {
		return err
	}

	_, err = session.client.SubmitHashes(ctx, hashes, signatures)
	if err != nil {
		logger.Logger.Error().Err(err).Msg("Failed to submit hashes to lnurl service")
		return err
	}

	logger.Logger.Info().Int("count", len(hashes)).Msg("Submitted new payment hashes")
	return nil
}

func (session *Session) topUpPreimages(ctx context.Context) {
	if !session.generating.CompareAndSwap(false, true) {
		return
	}
	defer session.generating.Store(false)

	if err := session.GeneratePreimages(ctx); err != nil {
		return
	}
	// Refresh without re-triggering a top-up so a stale inventory count
	// on the service side cannot loop generation.
	if _, err := session.refreshStatus(ctx, false); err != nil {
		logger.Logger.Warn().Err(err).Msg("Failed to refresh status after hash top-up")
	}
}

// CreateAddress registers a Lightning address for the node and
// activates the account locally.
func (session *Session) CreateAddress(ctx context.Context, handle string) error {
	relays := session.cfg.GetRelayUrls()

	relaysJSON, err := json.Marshal(relays)
	if err != nil {
		return err
	}
	relaysDigest := sha256.Sum256(relaysJSON)
	relaysSig, err := session.keys.SignHash(hex.EncodeToString(relaysDigest[:]))
	if err != nil {
		logger.Logger.Error().Err(err).Msg("Failed to sign relay list")
		return err
	}

	requestChannels := session.cfg.AutomaticallyRequestChannels()
	resp, err := session.client.CreateAddress(ctx, &CreateAddressParams{
		Handle:          handle,
		Domain:          session.cfg.GetEnv().LightningDomain,
		NostrPk:         session.keys.GetNostrPublicKey(),
		Relays:          relays,
		RelaysSig:       relaysSig,
		RequestChannels: requestChannels,
	})
	if err != nil {
		return err
	}

	if err := session.cfg.SetLightningAddress(resp.Handle, resp.Domain); err != nil {
		return err
	}

	logger.Logger.Info().
		Str("handle", resp.Handle).
		Str("domain", resp.Domain).
		Msg("Registered lightning address")

	session.eventPublisher.Publish(&events.Event{
		Event: constants.EVENT_ADDRESS_CREATED,
		Properties: map[string]interface{}{
			"handle": resp.Handle,
			"domain": resp.Domain,
		},
	})

	// Seed the hash inventory right away so the address is payable.
	if err := session.GeneratePreimages(ctx); err != nil {
		logger.Logger.Warn().Err(err).Msg("Failed to seed preimages after address creation")
	}

	return nil
}

// UpdateAddress patches mutable address attributes on the service and
// records the confirmed handle locally.
func (session *Session) UpdateAddress(ctx context.Context, updates map[string]interface{}) error {
	resp, err := session.client.UpdateAddress(ctx, updates)
	if err != nil {
		return err
	}
	if resp.Handle != "" {
		if err := session.cfg.SetLightningAddress(resp.Handle, resp.Domain); err != nil {
			return err
		}
	}
	return nil
}

// UpdatePushCredentials forwards the device push token to the service
// when it changed since the last registration.
func (session *Session) UpdatePushCredentials(ctx context.Context, deviceToken string, devicePlatform string) error {
	if deviceToken == "" {
		return nil
	}
	storedToken, err := session.cfg.Get(config.DeviceTokenKey)
	if err != nil {
		return err
	}
	if deviceToken == storedToken {
		return nil
	}

	err = session.UpdateAddress(ctx, map[string]interface{}{
		"device_token":    deviceToken,
		"device_platform": devicePlatform,
	})
	if err != nil {
		return err
	}

	if err := session.cfg.SetUpdate(config.DeviceTokenKey, deviceToken); err != nil {
		return err
	}
	return session.cfg.SetUpdate(config.DevicePlatformKey, devicePlatform)
}

// LookupAttestations verifies third-party payment claims for a held
// payment using the fee table from the latest status snapshot.
func (session *Session) LookupAttestations(ctx context.Context, hash string, amountMsat uint64) (*AttestationResult, error) {
	var fees []FeeRule
	session.statusMu.RLock()
	if session.status != nil {
		fees = session.status.Fees
	}
	session.statusMu.RUnlock()

	return LookupAttestations(ctx, session.pool, session.cfg.GetRelayUrls(), hash, amountMsat, fees)
}

// RedeemOne settles a single held payment. Concurrent calls for the
// same hash collapse into one redemption attempt.
func (session *Session) RedeemOne(ctx context.Context, hash string, amountMsat uint64, comment string, attestationLevel int) error {
	_, err, _ := session.redeemGroup.Do(hash, func() (interface{}, error) {
		return nil, session.redeemOne(ctx, hash, amountMsat, comment, attestationLevel)
	})
	return err
}

func (session *Session) redeemOne(ctx context.Context, hash string, amountMsat uint64, comment string, attestationLevel int) error {
	attemptId := uuid.NewString()
	log := logger.Logger.With().
		Str("attempt_id", attemptId).
		Str("payment_hash", hash).
		Uint64("amount_msat", amountMsat).
		Logger()

	if attestationLevel > constants.ATTESTATION_LEVEL_OFF {
		result, err := session.LookupAttestations(ctx, hash, amountMsat)
		if err != nil {
			log.Error().Err(err).Msg("Attestation lookup failed, withholding redemption")
			return err
		}
		switch result.Status {
		case AttestationStatusError:
			log.Warn().Msg("Invalid or conflicting attestations, withholding redemption")
			return nil
		case AttestationStatusWarning:
			if attestationLevel == constants.ATTESTATION_LEVEL_STRICT {
				log.Info().Msg("No attestation found and strict mode is on, withholding redemption")
				return nil
			}
			log.Debug().Msg("No attestation found, proceeding permissively")
		case AttestationStatusSuccess:
			log.Debug().Msg("Attestation verified")
		}
	}

	// The snapshot must reflect the outcome whether or not the
	// redemption went through.
	defer func() {
		if _, err := session.refreshStatus(context.WithoutCancel(ctx), true); err != nil {
			log.Warn().Err(err).Msg("Failed to refresh status after redemption attempt")
		}
	}()

	payReq := session.buildRedemptionInvoice(ctx, hash, amountMsat, comment, &log)

	if err := session.client.Redeem(ctx, hash, payReq); err != nil {
		log.Error().Err(err).Msg("Redemption failed")
		return err
	}

	record := &db.RedeemedPayment{
		PaymentHash: hash,
		AmountMsat:  amountMsat,
		Comment:     comment,
	}
	err := session.db.Clauses(clause.OnConflict{DoNothing: true}).Create(record).Error
	if err != nil {
		log.Warn().Err(err).Msg("Failed to record redeemed payment")
	}

	session.eventPublisher.Publish(&events.Event{
		Event: constants.EVENT_PAYMENT_REDEEMED,
		Properties: &PaymentRedeemedProperties{
			Hash:       hash,
			AmountMsat: amountMsat,
			Comment:    comment,
		},
	})

	log.Info().Msg("Payment redeemed")
	return nil
}

// buildRedemptionInvoice produces the payment request handed to the
// service. Preferred: a fresh invoice pinned to the stored preimage.
// Fallback: an invoice the node already holds for the hash. Last
// resort: empty, letting the service use what it has.
func (session *Session) buildRedemptionInvoice(ctx context.Context, hash string, amountMsat uint64, comment string, log *zerolog.Logger) string {
	memo := "ZEUS PAY"
	if comment != "" {
		memo = "ZEUS PAY: " + comment
	}

	preimage, err := session.vault.Lookup(hash)
	if err != nil {
		log.Warn().Err(err).Msg("No local preimage for hash")
	}

	if preimage != "" {
		// With just-in-time channels the service wraps the payment and
		// picks the final amount, so the invoice stays amountless.
		var value int64
		if !session.cfg.AutomaticallyRequestChannels() {
			value = int64(amountMsat)
		}

		transaction, err := session.lnClient.MakeInvoice(ctx, &lnclient.MakeInvoiceRequest{
			AmountMsat: value,
			Memo:       memo,
			Preimage:   preimage,
			Expiry:     constants.REDEEM_INVOICE_EXPIRY_SECONDS,
			Private:    session.cfg.RouteHints(),
		})
		if err == nil && transaction.Invoice != "" {
			return transaction.Invoice
		}
		log.Warn().Err(err).Msg("Failed to create redemption invoice, trying existing invoice")
	}

	transaction, err := session.lnClient.LookupInvoice(ctx, hash)
	if err == nil && transaction.Invoice != "" {
		return transaction.Invoice
	}
	if err != nil && !errors.Is(err, lnclient.ErrInvoiceNotFound) {
		log.Warn().Err(err).Msg("Failed to look up existing invoice")
	}

	log.Info().Msg("Redeeming without a payment request override")
	return ""
}

// RedeemAllPending refreshes the snapshot and attempts redemption of
// every held payment. Failures are isolated per payment.
func (session *Session) RedeemAllPending(ctx context.Context, attestationLevel int) error {
	status, err := session.refreshStatus(ctx, true)
	if err != nil {
		return err
	}

	var wg sync.WaitGroup
	for _, payment := range status.Paid {
		wg.Add(1)
		go func(payment PendingPayment) {
			defer wg.Done()
			err := session.RedeemOne(ctx, payment.Hash, payment.AmountMsat, payment.Comment, attestationLevel)
			if err != nil {
				logger.Logger.Error().Err(err).
					Str("payment_hash", payment.Hash).
					Msg("Failed to redeem pending payment")
			}
		}(payment)
	}
	wg.Wait()
	return nil
}

// Subscribe starts the stream listener once; repeated calls while a
// subscription is live are no-ops. Each paid event is redeemed at the
// attestation level configured at delivery time.
func (session *Session) Subscribe(ctx context.Context) {
	if !session.subscribed.CompareAndSwap(false, true) {
		return
	}

	go func() {
		defer session.subscribed.Store(false)

		err := session.client.Subscribe(ctx, func(paid PaidEvent) {
			level := session.cfg.GetAttestationLevel()
			go func() {
				err := session.RedeemOne(ctx, paid.Hash, paid.AmountMsat, paid.Comment, level)
				if err != nil {
					logger.Logger.Error().Err(err).
						Str("payment_hash", paid.Hash).
						Msg("Failed to redeem streamed payment")
				}
			}()
		})
		if err != nil && ctx.Err() == nil {
			logger.Logger.Error().Err(err).Msg("Payment stream closed")
		}
	}()
}

// StartAutoAccept polls the node until it can receive, then sweeps
// pending payments and subscribes to the stream. Returns when the
// sweep has started or ctx is cancelled.
func (session *Session) StartAutoAccept(ctx context.Context) {
	requestChannels := session.cfg.AutomaticallyRequestChannels()

	ticker := time.NewTicker(readinessPollInterval)
	defer ticker.Stop()

	for {
		ready, err := session.isReadyToReceive(ctx, requestChannels)
		if err != nil {
			logger.Logger.Debug().Err(err).Msg("Readiness check failed")
		}
		if ready {
			session.ready.Store(true)
			logger.Logger.Info().Msg("Node ready to receive, starting automatic acceptance")

			level := session.cfg.GetAttestationLevel()
			if err := session.RedeemAllPending(ctx, level); err != nil {
				logger.Logger.Error().Err(err).Msg("Initial pending sweep failed")
			}
			session.Subscribe(ctx)
			return
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// isReadyToReceive judges whether a redeemed payment could actually be
// settled right now. With automatic channel requests a synced chain is
// enough; otherwise an active channel with inbound capacity is needed.
func (session *Session) isReadyToReceive(ctx context.Context, requestChannels bool) (bool, error) {
	info, err := session.lnClient.GetInfo(ctx)
	if err != nil {
		return false, err
	}
	if !info.SyncedToChain {
		return false, nil
	}
	if requestChannels {
		return true, nil
	}

	channels, err := session.lnClient.ListChannels(ctx)
	if err != nil {
		return false, err
	}
	for _, channel := range channels {
		if channel.Active && channel.RemoteBalanceMsat > 0 {
			return true, nil
		}
	}
	return false, nil
}

// Reset drops the cached snapshot and readiness state, e.g. after the
// node backend was swapped out.
func (session *Session) Reset() {
	session.statusMu.Lock()
	session.status = nil
	session.statusMu.Unlock()
	session.ready.Store(false)
}
