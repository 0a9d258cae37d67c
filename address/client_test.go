package address

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/myxmaster/zeus/config"
	"github.com/myxmaster/zeus/lnclient"
	"github.com/myxmaster/zeus/tests"
)

const testVerification = "challenge-4a6f"

type redeemCall struct {
	Hash   string
	PayReq string
}

// lnurlServer fakes the remote LNURL service over httptest.
type lnurlServer struct {
	t      *testing.T
	server *httptest.Server

	mu              sync.Mutex
	status          StatusResponse
	failRedeem      string
	redeemed        []redeemCall
	submittedHashes [][]string
	updates         []map[string]interface{}
	createdHandle   string
	statusCalls     int

	// onCreate observes the decoded /lnurl/create request body.
	onCreate func(body map[string]interface{})
}

func newLnurlServer(t *testing.T) *lnurlServer {
	ls := &lnurlServer{
		t: t,
		status: StatusResponse{
			Success:     true,
			Results:     100,
			Handle:      "satoshi",
			Domain:      "zeuspay.com",
			MinimumSats: 10,
		},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/lnurl/auth", ls.handleAuth)
	mux.HandleFunc("/lnurl/submitHashes", ls.handleSubmitHashes)
	mux.HandleFunc("/lnurl/create", ls.handleCreate)
	mux.HandleFunc("/lnurl/update", ls.handleUpdate)
	mux.HandleFunc("/lnurl/status", ls.handleStatus)
	mux.HandleFunc("/lnurl/redeem", ls.handleRedeem)

	ls.server = httptest.NewServer(mux)
	t.Cleanup(ls.server.Close)
	return ls
}

func (ls *lnurlServer) URL() string {
	return ls.server.URL
}

// decodeAuthed decodes the request body and asserts the auth fields a
// signed call must carry.
func (ls *lnurlServer) decodeAuthed(r *http.Request, out interface{}) {
	require.NoError(ls.t, json.NewDecoder(r.Body).Decode(out))
}

func (ls *lnurlServer) requireAuth(body map[string]interface{}) {
	assert.NotEmpty(ls.t, body["pubkey"])
	assert.Equal(ls.t, testVerification, body["message"])
	assert.NotEmpty(ls.t, body["signature"])
}

func (ls *lnurlServer) handleAuth(w http.ResponseWriter, r *http.Request) {
	var body map[string]interface{}
	ls.decodeAuthed(r, &body)
	assert.NotEmpty(ls.t, body["pubkey"])

	writeJSON(w, map[string]interface{}{
		"verification": testVerification,
		"success":      true,
	})
}

func (ls *lnurlServer) handleSubmitHashes(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Pubkey    string   `json:"pubkey"`
		Message   string   `json:"message"`
		Signature string   `json:"signature"`
		Hashes    []string `json:"hashes"`
	}
	ls.decodeAuthed(r, &body)
	assert.Equal(ls.t, testVerification, body.Message)
	assert.NotEmpty(ls.t, body.Signature)

	ls.mu.Lock()
	ls.submittedHashes = append(ls.submittedHashes, body.Hashes)
	ls.mu.Unlock()

	writeJSON(w, map[string]interface{}{"success": true, "created_at": 1700000000})
}

func (ls *lnurlServer) handleCreate(w http.ResponseWriter, r *http.Request) {
	var body map[string]interface{}
	ls.decodeAuthed(r, &body)
	ls.requireAuth(body)

	handle, _ := body["handle"].(string)
	ls.mu.Lock()
	ls.createdHandle = handle
	onCreate := ls.onCreate
	ls.mu.Unlock()
	if onCreate != nil {
		onCreate(body)
	}

	writeJSON(w, map[string]interface{}{
		"success":    true,
		"handle":     handle,
		"domain":     "zeuspay.com",
		"created_at": 1700000000,
	})
}

func (ls *lnurlServer) handleUpdate(w http.ResponseWriter, r *http.Request) {
	var body map[string]interface{}
	ls.decodeAuthed(r, &body)
	ls.requireAuth(body)

	ls.mu.Lock()
	ls.updates = append(ls.updates, body)
	ls.mu.Unlock()

	writeJSON(w, map[string]interface{}{
		"success": true,
		"handle":  "satoshi",
		"domain":  "zeuspay.com",
	})
}

func (ls *lnurlServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	var body map[string]interface{}
	ls.decodeAuthed(r, &body)
	ls.requireAuth(body)

	ls.mu.Lock()
	ls.statusCalls++
	status := ls.status
	ls.mu.Unlock()

	writeJSON(w, status)
}

func (ls *lnurlServer) handleRedeem(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Pubkey    string `json:"pubkey"`
		Message   string `json:"message"`
		Signature string `json:"signature"`
		Hash      string `json:"hash"`
		PayReq    string `json:"payReq"`
	}
	ls.decodeAuthed(r, &body)
	assert.Equal(ls.t, testVerification, body.Message)

	ls.mu.Lock()
	failure := ls.failRedeem
	if failure == "" {
		ls.redeemed = append(ls.redeemed, redeemCall{Hash: body.Hash, PayReq: body.PayReq})
	}
	ls.mu.Unlock()

	if failure != "" {
		writeJSON(w, map[string]interface{}{"success": false, "error": failure})
		return
	}
	writeJSON(w, map[string]interface{}{"success": true})
}

func (ls *lnurlServer) setStatus(mutate func(*StatusResponse)) {
	ls.mu.Lock()
	defer ls.mu.Unlock()
	mutate(&ls.status)
}

func (ls *lnurlServer) setFailRedeem(message string) {
	ls.mu.Lock()
	defer ls.mu.Unlock()
	ls.failRedeem = message
}

func (ls *lnurlServer) setOnCreate(fn func(body map[string]interface{})) {
	ls.mu.Lock()
	defer ls.mu.Unlock()
	ls.onCreate = fn
}

func (ls *lnurlServer) redeemedCalls() []redeemCall {
	ls.mu.Lock()
	defer ls.mu.Unlock()
	return append([]redeemCall(nil), ls.redeemed...)
}

func (ls *lnurlServer) submitted() [][]string {
	ls.mu.Lock()
	defer ls.mu.Unlock()
	return append([][]string(nil), ls.submittedHashes...)
}

func (ls *lnurlServer) updateCalls() []map[string]interface{} {
	ls.mu.Lock()
	defer ls.mu.Unlock()
	return append([]map[string]interface{}(nil), ls.updates...)
}

func writeJSON(w http.ResponseWriter, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(body)
}

func newTestClient(t *testing.T, host string) (*ServiceClient, lnclient.LNClient) {
	mockLN, err := tests.NewMockLNClient()
	require.NoError(t, err)

	cfg, err := config.NewConfig(&config.AppConfig{
		LnurlHost:       host,
		LightningDomain: "zeuspay.com",
		Relays:          "wss://r1,wss://r2",
	}, tests.NewTestDB(t))
	require.NoError(t, err)

	return NewServiceClient(cfg, mockLN), mockLN
}

func TestServiceClientSubmitHashes(t *testing.T) {
	server := newLnurlServer(t)
	client, _ := newTestClient(t, server.URL())

	resp, err := client.SubmitHashes(context.Background(), []string{"aa", "bb"}, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(1700000000), resp.CreatedAt)

	submitted := server.submitted()
	require.Len(t, submitted, 1)
	assert.Equal(t, []string{"aa", "bb"}, submitted[0])
}

func TestServiceClientGetStatus(t *testing.T) {
	server := newLnurlServer(t)
	client, _ := newTestClient(t, server.URL())

	status, err := client.GetStatus(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "satoshi", status.Handle)
	assert.Equal(t, int64(100), status.Results)
	assert.Equal(t, uint64(10), status.MinimumSats)
}

func TestServiceClientRedeem_SendsPayReq(t *testing.T) {
	server := newLnurlServer(t)
	client, _ := newTestClient(t, server.URL())

	err := client.Redeem(context.Background(), testInvoiceHash, testInvoice)
	require.NoError(t, err)

	calls := server.redeemedCalls()
	require.Len(t, calls, 1)
	assert.Equal(t, testInvoiceHash, calls[0].Hash)
	assert.Equal(t, testInvoice, calls[0].PayReq)
}

func TestServiceClientRedeem_ServiceError(t *testing.T) {
	server := newLnurlServer(t)
	server.setFailRedeem("hash already settled")
	client, _ := newTestClient(t, server.URL())

	err := client.Redeem(context.Background(), "aa", "")
	require.Error(t, err)

	var serviceErr *ServiceError
	require.ErrorAs(t, err, &serviceErr)
	assert.Equal(t, "hash already settled", serviceErr.Message)
}

func TestServiceClientRedeem_TransportError(t *testing.T) {
	server := newLnurlServer(t)
	url := server.URL()
	server.server.Close()

	client, _ := newTestClient(t, url)

	err := client.Redeem(context.Background(), "aa", "")
	require.Error(t, err)

	var transportErr *TransportError
	assert.True(t, errors.As(err, &transportErr))
}

func TestServiceClientErrorStatusCode(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		writeJSON(w, map[string]interface{}{"error": "service exploded"})
	}))
	t.Cleanup(server.Close)

	client, _ := newTestClient(t, server.URL)

	_, err := client.GetStatus(context.Background())
	require.Error(t, err)

	var serviceErr *ServiceError
	require.ErrorAs(t, err, &serviceErr)
	assert.Equal(t, "service exploded", serviceErr.Message)
}
