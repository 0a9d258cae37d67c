package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"

	zeushttp "github.com/myxmaster/zeus/http"
	"github.com/myxmaster/zeus/logger"
	"github.com/myxmaster/zeus/service"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	svc, err := service.NewService(ctx)
	if err != nil {
		logger.Logger.Fatal().Err(err).Msg("Failed to create service")
	}

	e := echo.New()
	httpSvc := zeushttp.NewHttpService(svc)
	if err := httpSvc.RegisterSharedRoutes(e); err != nil {
		logger.Logger.Fatal().Err(err).Msg("Failed to register routes")
	}

	go func() {
		port := svc.GetConfig().GetEnv().Port
		err := e.Start(fmt.Sprintf(":%s", port))
		if err != nil && err != http.ErrServerClosed {
			logger.Logger.Fatal().Err(err).Msg("HTTP server terminated")
		}
	}()

	<-ctx.Done()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Logger.Error().Err(err).Msg("Failed to shut down HTTP server")
	}

	svc.Shutdown()
	logger.Logger.Info().Msg("Exiting")
}
