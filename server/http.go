package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"lecture2obs/config"
	"lecture2obs/handler"
	"lecture2obs/pkg/runner"
	"lecture2obs/repository"
	"lecture2obs/service"
)

// RunHttp serves the local control endpoints so a hotkey daemon or status
// bar can drive toggle/status without shelling out.
func RunHttp(cfg *config.Config) {
	ctx, cancel := signal.NotifyContext(setupLogger(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	gin.SetMode(gin.ReleaseMode)

	repo, err := repository.NewRepo(cfg.DBFile())
	if err != nil {
		zerolog.Ctx(ctx).Fatal().Err(err).Msg("failed to open session store")
	}

	controller := service.NewControllerService(repo, cfg, runner.NewDetachedRunner(cfg.LogFile()))
	deps := handler.ServiceDependencies{Controller: controller}

	r := gin.Default()
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
	r.GET("/status", handler.Status(deps))
	r.POST("/toggle", handler.Toggle(deps))

	srv := http.Server{
		Handler:           r,
		Addr:              fmt.Sprintf("127.0.0.1:%s", cfg.Server.HttpPort),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		zerolog.Ctx(ctx).Info().Str("addr", srv.Addr).Msg("start control server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zerolog.Ctx(ctx).Error().Err(err).Msg("control server stopped")
		}
	}()

	<-ctx.Done()
	zerolog.Ctx(ctx).Info().Msg("shutting down control server")
	if err := srv.Shutdown(context.Background()); err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Msg("shutdown failed")
	}
}

func setupLogger() context.Context {
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
	return logger.WithContext(context.Background())
}
