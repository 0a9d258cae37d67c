package lnd

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/lightningnetwork/lnd/lnrpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/myxmaster/zeus/lnclient"
	"github.com/myxmaster/zeus/lnclient/lnd/wrapper"
	"github.com/myxmaster/zeus/logger"
)

type LNDService struct {
	client   *wrapper.LNDWrapper
	nodeInfo *lnclient.NodeInfo
}

func NewLNDService(ctx context.Context, lndAddress, lndCertHex, lndMacaroonHex string) (lnclient.LNClient, error) {
	if lndAddress == "" || lndMacaroonHex == "" {
		return nil, errors.New("one or more required LND configuration are missing")
	}

	lndClient, err := wrapper.NewLNDclient(wrapper.LNDoptions{
		Address:     lndAddress,
		CertHex:     lndCertHex,
		MacaroonHex: lndMacaroonHex,
	})
	if err != nil {
		logger.Logger.Error().Err(err).Msg("Failed to create new LND client")
		return nil, err
	}

	var nodeInfo *lnclient.NodeInfo
	maxRetries := 5
	for i := range maxRetries {
		nodeInfo, err = fetchNodeInfo(ctx, lndClient)
		if err == nil {
			break
		}
		logger.Logger.Error().Err(err).
			Int("iteration", i).
			Msg("Failed to connect to LND, retrying in 2s")

		select {
		case <-time.After(2 * time.Second):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		logger.Logger.Error().Err(err).Msg("Failed to connect to LND on final attempt, not attempting further retries")
		return nil, err
	}

	logger.Logger.Info().Str("alias", nodeInfo.Alias).Msg("Connected to LND")

	return &LNDService{
		client:   lndClient,
		nodeInfo: nodeInfo,
	}, nil
}

func fetchNodeInfo(ctx context.Context, client *wrapper.LNDWrapper) (*lnclient.NodeInfo, error) {
	resp, err := client.GetInfo(ctx, &lnrpc.GetInfoRequest{})
	if err != nil {
		return nil, err
	}
	network := ""
	if len(resp.Chains) > 0 {
		network = resp.Chains[0].Network
	}
	return &lnclient.NodeInfo{
		Alias:         resp.Alias,
		Pubkey:        resp.IdentityPubkey,
		Network:       network,
		BlockHeight:   resp.BlockHeight,
		SyncedToChain: resp.SyncedToChain,
		SyncedToGraph: resp.SyncedToGraph,
	}, nil
}

func (svc *LNDService) GetInfo(ctx context.Context) (*lnclient.NodeInfo, error) {
	nodeInfo, err := fetchNodeInfo(ctx, svc.client)
	if err != nil {
		logger.Logger.Error().Err(err).Msg("Failed to fetch node info")
		return nil, err
	}
	svc.nodeInfo = nodeInfo
	return nodeInfo, nil
}

func (svc *LNDService) GetPubkey() string {
	return svc.nodeInfo.Pubkey
}

func (svc *LNDService) SignMessage(ctx context.Context, message string) (string, error) {
	resp, err := svc.client.SignMessage(ctx, &lnrpc.SignMessageRequest{Msg: []byte(message)})
	if err != nil {
		logger.Logger.Error().Err(err).Msg("Failed to sign message")
		return "", err
	}

	return resp.Signature, nil
}

func (svc *LNDService) MakeInvoice(ctx context.Context, req *lnclient.MakeInvoiceRequest) (*lnclient.Transaction, error) {
	var preimage []byte
	if req.Preimage != "" {
		var err error
		preimage, err = hex.DecodeString(req.Preimage)
		if err != nil {
			return nil, fmt.Errorf("invalid preimage hex: %w", err)
		}
	}

	invoice := &lnrpc.Invoice{
		Memo:      req.Memo,
		RPreimage: preimage,
		ValueMsat: req.AmountMsat,
		Expiry:    req.Expiry,
		Private:   req.Private,
	}

	resp, err := svc.client.AddInvoice(ctx, invoice)
	if err != nil {
		logger.Logger.Error().Err(err).Msg("Failed to create invoice")
		return nil, err
	}

	return &lnclient.Transaction{
		Invoice:     resp.PaymentRequest,
		PaymentHash: hex.EncodeToString(resp.RHash),
		Preimage:    req.Preimage,
		AmountMsat:  req.AmountMsat,
	}, nil
}

func (svc *LNDService) LookupInvoice(ctx context.Context, paymentHash string) (*lnclient.Transaction, error) {
	hashBytes, err := hex.DecodeString(paymentHash)
	if err != nil {
		return nil, fmt.Errorf("invalid payment hash: %w", err)
	}

	resp, err := svc.client.LookupInvoice(ctx, &lnrpc.PaymentHash{RHash: hashBytes})
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, lnclient.ErrInvoiceNotFound
		}
		logger.Logger.Error().Err(err).Str("payment_hash", paymentHash).Msg("Failed to lookup invoice")
		return nil, err
	}

	transaction := &lnclient.Transaction{
		Invoice:     resp.PaymentRequest,
		PaymentHash: hex.EncodeToString(resp.RHash),
		Preimage:    hex.EncodeToString(resp.RPreimage),
		AmountMsat:  resp.ValueMsat,
	}
	if resp.SettleDate > 0 {
		settledAt := resp.SettleDate
		transaction.SettledAt = &settledAt
	}
	return transaction, nil
}

func (svc *LNDService) ListChannels(ctx context.Context) ([]lnclient.Channel, error) {
	resp, err := svc.client.ListChannels(ctx, &lnrpc.ListChannelsRequest{})
	if err != nil {
		logger.Logger.Error().Err(err).Msg("Failed to list channels")
		return nil, err
	}

	channels := make([]lnclient.Channel, 0, len(resp.Channels))
	for _, channel := range resp.Channels {
		channels = append(channels, lnclient.Channel{
			ID:                   strconv.FormatUint(channel.ChanId, 10),
			RemotePubkey:         channel.RemotePubkey,
			Active:               channel.Active,
			Public:               !channel.Private,
			LocalBalanceMsat:     channel.LocalBalance * 1000,
			RemoteBalanceMsat:    channel.RemoteBalance * 1000,
			UnsettledBalanceMsat: channel.UnsettledBalance * 1000,
		})
	}
	return channels, nil
}

func (svc *LNDService) Shutdown() error {
	return svc.client.Close()
}
