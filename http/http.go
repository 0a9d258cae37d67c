// Package http is the echo transport in front of the api package.
package http

import (
	"crypto/subtle"
	"net/http"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/myxmaster/zeus/api"
	"github.com/myxmaster/zeus/logger"
	"github.com/myxmaster/zeus/service"
)

type HttpService struct {
	svc service.Service
	api api.API
}

func NewHttpService(svc service.Service) *HttpService {
	return &HttpService{
		svc: svc,
		api: api.NewAPI(svc),
	}
}

type ErrorResponse struct {
	Message string `json:"message"`
}

type authRequest struct {
	Password string `json:"password"`
}

type authResponse struct {
	Token string `json:"token"`
}

// RegisterSharedRoutes mounts the API. Everything except /api/info and
// /api/auth requires a bearer token minted by /api/auth.
func (httpSvc *HttpService) RegisterSharedRoutes(e *echo.Echo) error {
	e.HideBanner = true
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())

	jwtSecret, err := httpSvc.svc.GetConfig().GetJWTSecret()
	if err != nil {
		return err
	}

	e.GET("/api/info", httpSvc.infoHandler)
	e.POST("/api/auth", func(c echo.Context) error {
		return httpSvc.authHandler(c, jwtSecret)
	})

	g := e.Group("/api", echojwt.WithConfig(echojwt.Config{
		SigningKey: []byte(jwtSecret),
	}))
	g.GET("/status", httpSvc.statusHandler)
	g.POST("/address", httpSvc.createAddressHandler)
	g.PATCH("/address", httpSvc.updateAddressHandler)
	g.POST("/address/redeem", httpSvc.redeemHandler)
	g.POST("/address/redeem-all", httpSvc.redeemAllHandler)
	g.GET("/address/attestations", httpSvc.attestationsHandler)
	g.POST("/address/hashes", httpSvc.generatePreimagesHandler)
	g.POST("/settings", httpSvc.updateSettingsHandler)
	g.POST("/push", httpSvc.pushCredentialsHandler)

	return nil
}

func (httpSvc *HttpService) authHandler(c echo.Context, jwtSecret string) error {
	authPassword := httpSvc.svc.GetConfig().GetEnv().AuthPassword
	if authPassword == "" {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{
			Message: "authentication is not configured",
		})
	}

	var req authRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Message: err.Error()})
	}

	if subtle.ConstantTimeCompare([]byte(req.Password), []byte(authPassword)) != 1 {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Message: "invalid password"})
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "zeus",
		"iat": time.Now().Unix(),
		"exp": time.Now().Add(7 * 24 * time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte(jwtSecret))
	if err != nil {
		logger.Logger.Error().Err(err).Msg("Failed to sign JWT")
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Message: "failed to issue token"})
	}

	return c.JSON(http.StatusOK, authResponse{Token: signed})
}

func (httpSvc *HttpService) infoHandler(c echo.Context) error {
	return c.JSON(http.StatusOK, httpSvc.api.GetInfo(c.Request().Context()))
}

func (httpSvc *HttpService) statusHandler(c echo.Context) error {
	status, err := httpSvc.api.GetStatus(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusBadGateway, ErrorResponse{Message: err.Error()})
	}
	return c.JSON(http.StatusOK, status)
}

func (httpSvc *HttpService) createAddressHandler(c echo.Context) error {
	var req api.CreateAddressRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Message: err.Error()})
	}
	if err := httpSvc.api.CreateAddress(c.Request().Context(), &req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Message: err.Error()})
	}
	return c.NoContent(http.StatusNoContent)
}

func (httpSvc *HttpService) updateAddressHandler(c echo.Context) error {
	var updates map[string]interface{}
	if err := c.Bind(&updates); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Message: err.Error()})
	}
	if err := httpSvc.api.UpdateAddress(c.Request().Context(), updates); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Message: err.Error()})
	}
	return c.NoContent(http.StatusNoContent)
}

func (httpSvc *HttpService) redeemHandler(c echo.Context) error {
	var req api.RedeemRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Message: err.Error()})
	}
	if err := httpSvc.api.RedeemPayment(c.Request().Context(), &req); err != nil {
		return c.JSON(http.StatusBadGateway, ErrorResponse{Message: err.Error()})
	}
	return c.NoContent(http.StatusNoContent)
}

func (httpSvc *HttpService) redeemAllHandler(c echo.Context) error {
	if err := httpSvc.api.RedeemAllPending(c.Request().Context()); err != nil {
		return c.JSON(http.StatusBadGateway, ErrorResponse{Message: err.Error()})
	}
	return c.NoContent(http.StatusNoContent)
}

func (httpSvc *HttpService) attestationsHandler(c echo.Context) error {
	amountMsat, err := strconv.ParseUint(c.QueryParam("amount_msat"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Message: "invalid amount_msat"})
	}
	req := api.AttestationsRequest{
		Hash:       c.QueryParam("hash"),
		AmountMsat: amountMsat,
	}
	result, err := httpSvc.api.GetAttestations(c.Request().Context(), &req)
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Message: err.Error()})
	}
	return c.JSON(http.StatusOK, result)
}

func (httpSvc *HttpService) generatePreimagesHandler(c echo.Context) error {
	if err := httpSvc.api.GeneratePreimages(c.Request().Context()); err != nil {
		return c.JSON(http.StatusBadGateway, ErrorResponse{Message: err.Error()})
	}
	return c.NoContent(http.StatusNoContent)
}

func (httpSvc *HttpService) updateSettingsHandler(c echo.Context) error {
	var req api.UpdateSettingsRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Message: err.Error()})
	}
	if err := httpSvc.api.UpdateSettings(c.Request().Context(), &req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Message: err.Error()})
	}
	return c.NoContent(http.StatusNoContent)
}

func (httpSvc *HttpService) pushCredentialsHandler(c echo.Context) error {
	var req api.PushCredentialsRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Message: err.Error()})
	}
	if err := httpSvc.api.UpdatePushCredentials(c.Request().Context(), &req); err != nil {
		return c.JSON(http.StatusBadGateway, ErrorResponse{Message: err.Error()})
	}
	return c.NoContent(http.StatusNoContent)
}
