package service

import (
	"context"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gorm.io/gorm"

	"github.com/myxmaster/zeus/address"
	"github.com/myxmaster/zeus/config"
	"github.com/myxmaster/zeus/constants"
	"github.com/myxmaster/zeus/db"
	"github.com/myxmaster/zeus/events"
	"github.com/myxmaster/zeus/keys"
	"github.com/myxmaster/zeus/lnclient"
	"github.com/myxmaster/zeus/lnclient/lnd"
	"github.com/myxmaster/zeus/logger"
	"github.com/myxmaster/zeus/notifications"
	"github.com/myxmaster/zeus/pkg/version"
)

type service struct {
	cfg            config.Config
	db             *gorm.DB
	eventPublisher events.EventPublisher
	keys           keys.Keys
	lnClient       lnclient.LNClient
	session        *address.Session

	appCancelFn context.CancelFunc
}

// NewService wires the whole application: env, logging, database,
// identity keys, the LND backend and the redemption session. The
// session's background work is bound to ctx.
func NewService(ctx context.Context) (*service, error) {
	// ignore errors, the file may not exist
	_ = godotenv.Load(".env")

	appConfig := &config.AppConfig{}
	err := envconfig.Process("", appConfig)
	if err != nil {
		return nil, err
	}

	logger.Init(appConfig.LogLevel)

	if appConfig.Workdir == "" {
		appConfig.Workdir = filepath.Join(xdg.DataHome, "zeus")
	}
	err = os.MkdirAll(appConfig.Workdir, os.ModePerm)
	if err != nil {
		return nil, fmt.Errorf("failed to create workdir: %w", err)
	}

	if appConfig.LogToFile {
		if err := logger.AddFileLogger(appConfig.Workdir); err != nil {
			return nil, err
		}
	}

	logger.Logger.Info().Str("version", version.Tag).Msg("ZEUS PAY starting")

	if !filepath.IsAbs(appConfig.DatabaseUri) {
		appConfig.DatabaseUri = filepath.Join(appConfig.Workdir, appConfig.DatabaseUri)
	}
	gormDB, err := db.NewDB(appConfig.DatabaseUri, appConfig.LogDBQueries)
	if err != nil {
		return nil, err
	}

	cfg, err := config.NewConfig(appConfig, gormDB)
	if err != nil {
		return nil, err
	}

	appKeys := keys.NewKeys()
	if err := appKeys.Init(cfg); err != nil {
		return nil, err
	}

	eventPublisher := events.NewEventPublisher()
	eventPublisher.RegisterSubscriber(
		notifications.NewPaymentReceivedListener(&notifications.LogNotifier{}))

	lnClient, err := launchLNBackend(ctx, appConfig)
	if err != nil {
		return nil, err
	}

	client := address.NewServiceClient(cfg, lnClient)
	vault := address.NewVault(gormDB, appKeys)
	session := address.NewSession(cfg, gormDB, lnClient, client, vault, appKeys, address.NewRelayPool(), eventPublisher)

	appCtx, appCancelFn := context.WithCancel(ctx)

	svc := &service{
		cfg:            cfg,
		db:             gormDB,
		eventPublisher: eventPublisher,
		keys:           appKeys,
		lnClient:       lnClient,
		session:        session,
		appCancelFn:    appCancelFn,
	}

	eventPublisher.Publish(&events.Event{Event: constants.EVENT_STARTED})

	if cfg.AddressActivated() && cfg.AutomaticallyAccept() {
		go session.StartAutoAccept(appCtx)
	} else {
		logger.Logger.Info().Msg("Automatic acceptance disabled or address not activated")
	}

	return svc, nil
}

func launchLNBackend(ctx context.Context, appConfig *config.AppConfig) (lnclient.LNClient, error) {
	if appConfig.LNBackendType != config.LNDBackendType {
		return nil, fmt.Errorf("unsupported LN backend type: %s", appConfig.LNBackendType)
	}

	certHex, err := readFileHex(appConfig.LNDCertFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read LND certificate: %w", err)
	}
	macaroonHex, err := readFileHex(appConfig.LNDMacaroonFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read LND macaroon: %w", err)
	}

	return lnd.NewLNDService(ctx, appConfig.LNDAddress, certHex, macaroonHex)
}

func readFileHex(path string) (string, error) {
	if path == "" {
		return "", nil
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(content), nil
}

func (svc *service) GetConfig() config.Config {
	return svc.cfg
}

func (svc *service) GetDB() *gorm.DB {
	return svc.db
}

func (svc *service) GetEventPublisher() events.EventPublisher {
	return svc.eventPublisher
}

func (svc *service) GetKeys() keys.Keys {
	return svc.keys
}

func (svc *service) GetLNClient() lnclient.LNClient {
	return svc.lnClient
}

func (svc *service) GetSession() *address.Session {
	return svc.session
}

// Shutdown stops background work and releases the node and database
// connections.
func (svc *service) Shutdown() {
	logger.Logger.Info().Msg("Shutting down")
	svc.eventPublisher.PublishSync(&events.Event{Event: constants.EVENT_STOPPED})

	svc.appCancelFn()
	svc.session.Reset()

	if err := svc.lnClient.Shutdown(); err != nil {
		logger.Logger.Error().Err(err).Msg("Failed to shut down LN client")
	}
	if err := db.Stop(svc.db); err != nil {
		logger.Logger.Error().Err(err).Msg("Failed to close database")
	}
}
