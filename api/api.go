// Package api exposes the application operations consumed by the HTTP
// transport, independent of any particular wire format.
package api

import (
	"context"
	"errors"
	"strconv"

	"github.com/myxmaster/zeus/address"
	"github.com/myxmaster/zeus/config"
	"github.com/myxmaster/zeus/logger"
	"github.com/myxmaster/zeus/pkg/version"
	"github.com/myxmaster/zeus/service"
)

type API interface {
	GetInfo(ctx context.Context) *InfoResponse
	GetStatus(ctx context.Context) (*StatusResponse, error)
	CreateAddress(ctx context.Context, req *CreateAddressRequest) error
	UpdateAddress(ctx context.Context, updates map[string]interface{}) error
	RedeemPayment(ctx context.Context, req *RedeemRequest) error
	RedeemAllPending(ctx context.Context) error
	GetAttestations(ctx context.Context, req *AttestationsRequest) (*address.AttestationResult, error)
	GeneratePreimages(ctx context.Context) error
	UpdateSettings(ctx context.Context, req *UpdateSettingsRequest) error
	UpdatePushCredentials(ctx context.Context, req *PushCredentialsRequest) error
}

type api struct {
	svc service.Service
}

func NewAPI(svc service.Service) *api {
	return &api{svc: svc}
}

func (api *api) GetInfo(ctx context.Context) *InfoResponse {
	cfg := api.svc.GetConfig()
	session := api.svc.GetSession()

	info := &InfoResponse{
		Version:             version.Tag,
		AddressActivated:    cfg.AddressActivated(),
		ReadyToReceive:      session.Ready(),
		AutomaticallyAccept: cfg.AutomaticallyAccept(),
		AttestationLevel:    cfg.GetAttestationLevel(),
	}

	if handle, domain := cfg.GetLightningAddress(); handle != "" {
		info.LightningAddress = handle + "@" + domain
	}

	nodeInfo, err := api.svc.GetLNClient().GetInfo(ctx)
	if err != nil {
		logger.Logger.Warn().Err(err).Msg("Failed to fetch node info for info response")
		return info
	}
	info.Network = nodeInfo.Network
	info.NodeAlias = nodeInfo.Alias
	info.NodePubkey = nodeInfo.Pubkey

	return info
}

func (api *api) GetStatus(ctx context.Context) (*StatusResponse, error) {
	return api.svc.GetSession().RefreshStatus(ctx)
}

func (api *api) CreateAddress(ctx context.Context, req *CreateAddressRequest) error {
	if req.Handle == "" {
		return errors.New("handle is required")
	}
	return api.svc.GetSession().CreateAddress(ctx, req.Handle)
}

func (api *api) UpdateAddress(ctx context.Context, updates map[string]interface{}) error {
	if len(updates) == 0 {
		return errors.New("no updates given")
	}
	return api.svc.GetSession().UpdateAddress(ctx, updates)
}

func (api *api) RedeemPayment(ctx context.Context, req *RedeemRequest) error {
	if req.Hash == "" {
		return errors.New("hash is required")
	}
	level := api.svc.GetConfig().GetAttestationLevel()
	return api.svc.GetSession().RedeemOne(ctx, req.Hash, req.AmountMsat, req.Comment, level)
}

func (api *api) RedeemAllPending(ctx context.Context) error {
	level := api.svc.GetConfig().GetAttestationLevel()
	return api.svc.GetSession().RedeemAllPending(ctx, level)
}

func (api *api) GetAttestations(ctx context.Context, req *AttestationsRequest) (*address.AttestationResult, error) {
	if req.Hash == "" {
		return nil, errors.New("hash is required")
	}
	return api.svc.GetSession().LookupAttestations(ctx, req.Hash, req.AmountMsat)
}

func (api *api) GeneratePreimages(ctx context.Context) error {
	return api.svc.GetSession().GeneratePreimages(ctx)
}

func (api *api) UpdateSettings(ctx context.Context, req *UpdateSettingsRequest) error {
	cfg := api.svc.GetConfig()

	if req.AttestationLevel != nil {
		if err := cfg.SetAttestationLevel(*req.AttestationLevel); err != nil {
			return err
		}
	}
	if req.AutomaticallyAccept != nil {
		if err := cfg.SetUpdate(config.AutomaticallyAcceptKey, strconv.FormatBool(*req.AutomaticallyAccept)); err != nil {
			return err
		}
	}
	if req.RequestChannels != nil {
		if err := cfg.SetUpdate(config.RequestChannelsKey, strconv.FormatBool(*req.RequestChannels)); err != nil {
			return err
		}
	}
	if req.RouteHints != nil {
		if err := cfg.SetUpdate(config.RouteHintsKey, strconv.FormatBool(*req.RouteHints)); err != nil {
			return err
		}
	}
	return nil
}

func (api *api) UpdatePushCredentials(ctx context.Context, req *PushCredentialsRequest) error {
	if req.DeviceToken == "" {
		return errors.New("device_token is required")
	}
	return api.svc.GetSession().UpdatePushCredentials(ctx, req.DeviceToken, req.DevicePlatform)
}
