package service

import (
	"gorm.io/gorm"

	"github.com/myxmaster/zeus/address"
	"github.com/myxmaster/zeus/config"
	"github.com/myxmaster/zeus/events"
	"github.com/myxmaster/zeus/keys"
	"github.com/myxmaster/zeus/lnclient"
)

type Service interface {
	GetConfig() config.Config
	GetDB() *gorm.DB
	GetEventPublisher() events.EventPublisher
	GetKeys() keys.Keys
	GetLNClient() lnclient.LNClient
	GetSession() *address.Session
	Shutdown()
}
