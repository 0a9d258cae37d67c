package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/myxmaster/zeus/address"
	"github.com/myxmaster/zeus/config"
	"github.com/myxmaster/zeus/events"
	"github.com/myxmaster/zeus/keys"
	"github.com/myxmaster/zeus/lnclient"
	"github.com/myxmaster/zeus/tests"
)

type stubService struct {
	cfg config.Config
	db  *gorm.DB
}

func (svc *stubService) GetConfig() config.Config                 { return svc.cfg }
func (svc *stubService) GetDB() *gorm.DB                          { return svc.db }
func (svc *stubService) GetEventPublisher() events.EventPublisher { return events.NewEventPublisher() }
func (svc *stubService) GetKeys() keys.Keys                       { return nil }
func (svc *stubService) GetLNClient() lnclient.LNClient           { return nil }
func (svc *stubService) GetSession() *address.Session             { return nil }
func (svc *stubService) Shutdown()                                {}

func setupEcho(t *testing.T, authPassword string) (*echo.Echo, config.Config) {
	gormDB := tests.NewTestDB(t)
	cfg, err := config.NewConfig(&config.AppConfig{AuthPassword: authPassword}, gormDB)
	require.NoError(t, err)

	e := echo.New()
	httpSvc := NewHttpService(&stubService{cfg: cfg, db: gormDB})
	require.NoError(t, httpSvc.RegisterSharedRoutes(e))
	return e, cfg
}

func TestAuthHandler(t *testing.T) {
	e, cfg := setupEcho(t, "hunter2")

	// wrong password
	req := httptest.NewRequest(http.MethodPost, "/api/auth", strings.NewReader(`{"password":"wrong"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// right password mints a verifiable token
	req = httptest.NewRequest(http.MethodPost, "/api/auth", strings.NewReader(`{"password":"hunter2"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp authResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Token)

	jwtSecret, err := cfg.GetJWTSecret()
	require.NoError(t, err)
	token, err := jwt.Parse(resp.Token, func(token *jwt.Token) (interface{}, error) {
		return []byte(jwtSecret), nil
	})
	require.NoError(t, err)
	assert.True(t, token.Valid)
}

func TestAuthHandlerDisabled(t *testing.T) {
	e, _ := setupEcho(t, "")

	req := httptest.NewRequest(http.MethodPost, "/api/auth", strings.NewReader(`{"password":""}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	e, _ := setupEcho(t, "hunter2")

	req := httptest.NewRequest(http.MethodGet, "/api/status", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
