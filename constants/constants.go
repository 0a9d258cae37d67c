package constants

const (
	// Number of preimages generated per vault batch.
	PREIMAGE_BATCH_SIZE = 250

	// Below this many unused hashes a new batch is generated after a
	// successful status refresh.
	PREIMAGE_LOW_WATERMARK = 50

	// Nostr event kind used for payment attestations.
	ATTESTATION_EVENT_KIND = 55869

	// Fallback fee when no fee rule matches (100 sats).
	DEFAULT_FEE_MSAT = 100_000

	// Invoices created for redemption are valid for 24 hours.
	REDEEM_INVOICE_EXPIRY_SECONDS = 86400
)

const (
	ATTESTATION_LEVEL_OFF        = 0
	ATTESTATION_LEVEL_STRICT     = 1
	ATTESTATION_LEVEL_PERMISSIVE = 2
)

const (
	EVENT_PAYMENT_REDEEMED = "zeus_payment_redeemed"
	EVENT_ADDRESS_CREATED  = "zeus_address_created"
	EVENT_STARTED          = "zeus_started"
	EVENT_STOPPED          = "zeus_stopped"
)
