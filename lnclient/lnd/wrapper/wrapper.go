package wrapper

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/lightningnetwork/lnd/lnrpc"
	"github.com/lightningnetwork/lnd/macaroons"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"gopkg.in/macaroon.v2"
)

type LNDoptions struct {
	Address     string
	CertHex     string
	MacaroonHex string
}

type LNDWrapper struct {
	client lnrpc.LightningClient
	conn   *grpc.ClientConn
}

func NewLNDclient(lndOptions LNDoptions) (*LNDWrapper, error) {
	if lndOptions.Address == "" {
		return nil, errors.New("LND address is required")
	}

	var creds credentials.TransportCredentials
	if lndOptions.CertHex != "" {
		certBytes, err := hex.DecodeString(lndOptions.CertHex)
		if err != nil {
			return nil, fmt.Errorf("failed to decode TLS cert hex: %w", err)
		}
		certPool := x509.NewCertPool()
		if !certPool.AppendCertsFromPEM(certBytes) {
			return nil, errors.New("failed to parse TLS cert")
		}
		creds = credentials.NewClientTLSFromCert(certPool, "")
	} else {
		// fall back to the system cert pool (hosted nodes with real certs)
		creds = credentials.NewTLS(&tls.Config{})
	}

	opts := []grpc.DialOption{
		grpc.WithTransportCredentials(creds),
	}

	if lndOptions.MacaroonHex != "" {
		macBytes, err := hex.DecodeString(lndOptions.MacaroonHex)
		if err != nil {
			return nil, fmt.Errorf("failed to decode macaroon hex: %w", err)
		}
		mac := &macaroon.Macaroon{}
		if err := mac.UnmarshalBinary(macBytes); err != nil {
			return nil, fmt.Errorf("failed to unmarshal macaroon: %w", err)
		}
		macCreds, err := macaroons.NewMacaroonCredential(mac)
		if err != nil {
			return nil, fmt.Errorf("failed to create macaroon credential: %w", err)
		}
		opts = append(opts, grpc.WithPerRPCCredentials(macCreds))
	}

	conn, err := grpc.NewClient(lndOptions.Address, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to dial LND: %w", err)
	}

	return &LNDWrapper{
		client: lnrpc.NewLightningClient(conn),
		conn:   conn,
	}, nil
}

func (wrapper *LNDWrapper) Close() error {
	return wrapper.conn.Close()
}

func (wrapper *LNDWrapper) GetInfo(ctx context.Context, req *lnrpc.GetInfoRequest, options ...grpc.CallOption) (*lnrpc.GetInfoResponse, error) {
	return wrapper.client.GetInfo(ctx, req, options...)
}

func (wrapper *LNDWrapper) SignMessage(ctx context.Context, req *lnrpc.SignMessageRequest, options ...grpc.CallOption) (*lnrpc.SignMessageResponse, error) {
	return wrapper.client.SignMessage(ctx, req, options...)
}

func (wrapper *LNDWrapper) AddInvoice(ctx context.Context, req *lnrpc.Invoice, options ...grpc.CallOption) (*lnrpc.AddInvoiceResponse, error) {
	return wrapper.client.AddInvoice(ctx, req, options...)
}

func (wrapper *LNDWrapper) LookupInvoice(ctx context.Context, req *lnrpc.PaymentHash, options ...grpc.CallOption) (*lnrpc.Invoice, error) {
	return wrapper.client.LookupInvoice(ctx, req, options...)
}

func (wrapper *LNDWrapper) ListChannels(ctx context.Context, req *lnrpc.ListChannelsRequest, options ...grpc.CallOption) (*lnrpc.ListChannelsResponse, error) {
	return wrapper.client.ListChannels(ctx, req, options...)
}
