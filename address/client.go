package address

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/myxmaster/zeus/config"
	"github.com/myxmaster/zeus/lnclient"
	"github.com/myxmaster/zeus/logger"
)

const httpRequestTimeout = 30 * time.Second

// TransportError wraps network and protocol failures talking to the
// service. The request may or may not have reached the server.
type TransportError struct {
	Err error
}

func (err *TransportError) Error() string {
	return "lnurl service unreachable: " + err.Err.Error()
}

func (err *TransportError) Unwrap() error {
	return err.Err
}

// ServiceError is an application level rejection reported by the
// service itself. The request was delivered and processed.
type ServiceError struct {
	Message string
}

func (err *ServiceError) Error() string {
	return err.Message
}

// ServiceClient talks to the ZEUS PAY LNURL service. Every call is
// authenticated with a fresh challenge signed by the node key, so the
// client holds no session state beyond endpoint configuration.
type ServiceClient struct {
	host       string
	socketHost string
	socketPath string
	lnClient   lnclient.LNClient
	httpClient *http.Client
}

func NewServiceClient(cfg config.Config, lnClient lnclient.LNClient) *ServiceClient {
	env := cfg.GetEnv()
	return &ServiceClient{
		host:       env.LnurlHost,
		socketHost: env.LnurlSocketHost,
		socketPath: env.LnurlSocketPath,
		lnClient:   lnClient,
		httpClient: &http.Client{
			Timeout: httpRequestTimeout,
		},
	}
}

// authFields are included in every authenticated request body.
type authFields struct {
	Pubkey    string `json:"pubkey"`
	Message   string `json:"message"`
	Signature string `json:"signature"`
}

type authChallengeRequest struct {
	Pubkey string `json:"pubkey"`
}

type authChallengeResponse struct {
	Verification string `json:"verification"`
	Success      bool   `json:"success"`
	Error        string `json:"error"`
}

// authenticate fetches a verification challenge for the node pubkey and
// signs it with the node key.
func (client *ServiceClient) authenticate(ctx context.Context) (*authFields, error) {
	pubkey := client.lnClient.GetPubkey()

	var challenge authChallengeResponse
	err := client.post(ctx, "/lnurl/auth", &authChallengeRequest{Pubkey: pubkey}, &challenge)
	if err != nil {
		return nil, err
	}
	if !challenge.Success || challenge.Verification == "" {
		return nil, &ServiceError{Message: serviceMessage(challenge.Error, "authentication rejected")}
	}

	signature, err := client.lnClient.SignMessage(ctx, challenge.Verification)
	if err != nil {
		return nil, fmt.Errorf("failed to sign verification message: %w", err)
	}

	return &authFields{
		Pubkey:    pubkey,
		Message:   challenge.Verification,
		Signature: signature,
	}, nil
}

func (client *ServiceClient) post(ctx context.Context, path string, body interface{}, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to encode request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, client.host+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.httpClient.Do(req)
	if err != nil {
		return &TransportError{Err: err}
	}
	defer resp.Body.Close()

	responseBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return &TransportError{Err: err}
	}

	if resp.StatusCode >= 300 {
		var errorResponse struct {
			Error string `json:"error"`
		}
		_ = json.Unmarshal(responseBody, &errorResponse)
		return &ServiceError{
			Message: serviceMessage(errorResponse.Error, fmt.Sprintf("unexpected status %d from %s", resp.StatusCode, path)),
		}
	}

	if err := json.Unmarshal(responseBody, out); err != nil {
		return &TransportError{Err: fmt.Errorf("failed to decode response from %s: %w", path, err)}
	}
	return nil
}

func serviceMessage(message string, fallback string) string {
	if message != "" {
		return message
	}
	return fallback
}

type submitHashesRequest struct {
	authFields
	Hashes          []string `json:"hashes"`
	NostrSignatures []string `json:"nostrSignatures,omitempty"`
}

type SubmitHashesResponse struct {
	Success   bool   `json:"success"`
	CreatedAt int64  `json:"created_at"`
	Error     string `json:"error"`
}

// SubmitHashes registers a batch of payment hashes with the service,
// optionally with per-hash nostr signatures binding them to the wallet
// identity.
func (client *ServiceClient) SubmitHashes(ctx context.Context, hashes []string, nostrSignatures []string) (*SubmitHashesResponse, error) {
	auth, err := client.authenticate(ctx)
	if err != nil {
		return nil, err
	}

	var resp SubmitHashesResponse
	err = client.post(ctx, "/lnurl/submitHashes", &submitHashesRequest{
		authFields:      *auth,
		Hashes:          hashes,
		NostrSignatures: nostrSignatures,
	}, &resp)
	if err != nil {
		return nil, err
	}
	if !resp.Success {
		return nil, &ServiceError{Message: serviceMessage(resp.Error, "hash submission rejected")}
	}
	return &resp, nil
}

type createAddressRequest struct {
	authFields
	Handle          string   `json:"handle"`
	Domain          string   `json:"domain"`
	NostrPk         string   `json:"nostr_pk,omitempty"`
	Relays          []string `json:"relays,omitempty"`
	RelaysSig       string   `json:"relays_sig,omitempty"`
	RequestChannels bool     `json:"request_channels"`
}

// CreateAddressParams carries the signed identity material for address
// registration.
type CreateAddressParams struct {
	Handle          string
	Domain          string
	NostrPk         string
	Relays          []string
	RelaysSig       string
	RequestChannels bool
}

type CreateAddressResponse struct {
	Success   bool   `json:"success"`
	Handle    string `json:"handle"`
	Domain    string `json:"domain"`
	CreatedAt int64  `json:"created_at"`
	Error     string `json:"error"`
}

func (client *ServiceClient) CreateAddress(ctx context.Context, params *CreateAddressParams) (*CreateAddressResponse, error) {
	auth, err := client.authenticate(ctx)
	if err != nil {
		return nil, err
	}

	var resp CreateAddressResponse
	err = client.post(ctx, "/lnurl/create", &createAddressRequest{
		authFields:      *auth,
		Handle:          params.Handle,
		Domain:          params.Domain,
		NostrPk:         params.NostrPk,
		Relays:          params.Relays,
		RelaysSig:       params.RelaysSig,
		RequestChannels: params.RequestChannels,
	}, &resp)
	if err != nil {
		return nil, err
	}
	if !resp.Success {
		return nil, &ServiceError{Message: serviceMessage(resp.Error, "address registration rejected")}
	}
	return &resp, nil
}

type UpdateAddressResponse struct {
	Success bool   `json:"success"`
	Handle  string `json:"handle"`
	Domain  string `json:"domain"`
	Error   string `json:"error"`
}

// UpdateAddress patches mutable address attributes such as relays or
// push notification credentials. Keys not present in updates are left
// untouched by the service.
func (client *ServiceClient) UpdateAddress(ctx context.Context, updates map[string]interface{}) (*UpdateAddressResponse, error) {
	auth, err := client.authenticate(ctx)
	if err != nil {
		return nil, err
	}

	body := map[string]interface{}{
		"pubkey":    auth.Pubkey,
		"message":   auth.Message,
		"signature": auth.Signature,
	}
	for key, value := range updates {
		body[key] = value
	}

	var resp UpdateAddressResponse
	err = client.post(ctx, "/lnurl/update", body, &resp)
	if err != nil {
		return nil, err
	}
	if !resp.Success {
		return nil, &ServiceError{Message: serviceMessage(resp.Error, "address update rejected")}
	}
	return &resp, nil
}

type statusRequest struct {
	authFields
}

type StatusResponse struct {
	Success     bool             `json:"success"`
	Results     int64            `json:"results"`
	Paid        []PendingPayment `json:"paid"`
	Settled     []PendingPayment `json:"settled"`
	Fees        []FeeRule        `json:"fees"`
	MinimumSats uint64           `json:"minimumSats"`
	Handle      string           `json:"handle"`
	Domain      string           `json:"domain"`
	Error       string           `json:"error"`
}

// GetStatus fetches the account snapshot: remaining hash inventory,
// pending and settled payments and the current fee table.
func (client *ServiceClient) GetStatus(ctx context.Context) (*StatusResponse, error) {
	auth, err := client.authenticate(ctx)
	if err != nil {
		return nil, err
	}

	var resp StatusResponse
	err = client.post(ctx, "/lnurl/status", &statusRequest{authFields: *auth}, &resp)
	if err != nil {
		return nil, err
	}
	if !resp.Success {
		return nil, &ServiceError{Message: serviceMessage(resp.Error, "status request rejected")}
	}
	return &resp, nil
}

type redeemRequest struct {
	authFields
	Hash   string `json:"hash"`
	PayReq string `json:"payReq,omitempty"`
}

type redeemResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// Redeem asks the service to settle a held payment. payReq may be
// empty, in which case the service pays out to an invoice it already
// holds for the hash.
func (client *ServiceClient) Redeem(ctx context.Context, hash string, payReq string) error {
	auth, err := client.authenticate(ctx)
	if err != nil {
		return err
	}

	var resp redeemResponse
	err = client.post(ctx, "/lnurl/redeem", &redeemRequest{
		authFields: *auth,
		Hash:       hash,
		PayReq:     payReq,
	}, &resp)
	if err != nil {
		return err
	}
	if !resp.Success {
		return &ServiceError{Message: serviceMessage(resp.Error, "redemption rejected")}
	}

	logger.Logger.Info().Str("payment_hash", hash).Msg("Redeemed payment with lnurl service")
	return nil
}
