package api

import (
	"github.com/myxmaster/zeus/address"
)

type InfoResponse struct {
	Version             string `json:"version"`
	Network             string `json:"network,omitempty"`
	NodeAlias           string `json:"node_alias,omitempty"`
	NodePubkey          string `json:"node_pubkey,omitempty"`
	LightningAddress    string `json:"lightning_address,omitempty"`
	AddressActivated    bool   `json:"address_activated"`
	ReadyToReceive      bool   `json:"ready_to_receive"`
	AutomaticallyAccept bool   `json:"automatically_accept"`
	AttestationLevel    int    `json:"attestation_level"`
}

type CreateAddressRequest struct {
	Handle string `json:"handle"`
}

type RedeemRequest struct {
	Hash       string `json:"hash"`
	AmountMsat uint64 `json:"amount_msat"`
	Comment    string `json:"comment,omitempty"`
}

type AttestationsRequest struct {
	Hash       string `json:"hash"`
	AmountMsat uint64 `json:"amount_msat"`
}

type UpdateSettingsRequest struct {
	AttestationLevel    *int  `json:"attestation_level,omitempty"`
	AutomaticallyAccept *bool `json:"automatically_accept,omitempty"`
	RequestChannels     *bool `json:"request_channels,omitempty"`
	RouteHints          *bool `json:"route_hints,omitempty"`
}

type PushCredentialsRequest struct {
	DeviceToken    string `json:"device_token"`
	DevicePlatform string `json:"device_platform"`
}

type StatusResponse = address.Status
