package config

const (
	LNDBackendType = "LND"
)

// user config keys
const (
	NostrSecretKeyKey      = "NostrSecretKey"
	LightningAddressKey    = "LightningAddressHandle"
	LightningDomainKey     = "LightningAddressDomain"
	AddressActivatedKey    = "LightningAddressActivated"
	AttestationLevelKey    = "AutomaticallyAcceptAttestationLevel"
	AutomaticallyAcceptKey = "AutomaticallyAccept"
	RequestChannelsKey     = "AutomaticallyRequestChannels"
	RouteHintsKey          = "RouteHints"
	DeviceTokenKey         = "NotificationDeviceToken"
	DevicePlatformKey      = "NotificationDevicePlatform"
	JWTSecretKey           = "JWTSecret"
)

type AppConfig struct {
	Workdir      string `envconfig:"WORK_DIR"`
	Port         string `envconfig:"PORT" default:"8029"`
	DatabaseUri  string `envconfig:"DATABASE_URI" default:"zeus.db"`
	LogLevel     string `envconfig:"LOG_LEVEL" default:"1"`
	LogToFile    bool   `envconfig:"LOG_TO_FILE" default:"true"`
	LogDBQueries bool   `envconfig:"LOG_DB_QUERIES" default:"false"`

	LNBackendType   string `envconfig:"LN_BACKEND_TYPE" default:"LND"`
	LNDAddress      string `envconfig:"LND_ADDRESS"`
	LNDCertFile     string `envconfig:"LND_CERT_FILE"`
	LNDMacaroonFile string `envconfig:"LND_MACAROON_FILE"`

	LnurlHost       string `envconfig:"LNURL_HOST" default:"https://zeuspay.com/api"`
	LnurlSocketHost string `envconfig:"LNURL_SOCKET_HOST" default:"wss://zeuspay.com"`
	LnurlSocketPath string `envconfig:"LNURL_SOCKET_PATH" default:"/stream"`
	LightningDomain string `envconfig:"LIGHTNING_DOMAIN" default:"zeuspay.com"`

	Relays string `envconfig:"RELAYS" default:"wss://nostr.mutinywallet.com,wss://relay.damus.io"`

	// Password protecting the HTTP API. Leaving it empty disables
	// authentication and with it every mutating endpoint.
	AuthPassword string `envconfig:"AUTH_PASSWORD"`
}

type Config interface {
	Get(key string) (string, error)
	SetUpdate(key string, value string) error
	SetIgnore(key string, value string) error
	GetEnv() *AppConfig
	GetJWTSecret() (string, error)
	GetRelayUrls() []string
	GetDefaultWorkDir() string

	GetLightningAddress() (handle string, domain string)
	SetLightningAddress(handle string, domain string) error
	AddressActivated() bool

	GetAttestationLevel() int
	SetAttestationLevel(level int) error
	AutomaticallyAccept() bool
	AutomaticallyRequestChannels() bool
	RouteHints() bool
}
