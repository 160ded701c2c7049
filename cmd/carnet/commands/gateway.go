package commands

import (
	"context"
	"fmt"
	"net/http"

	"github.com/carnet-digital/carnet/client"
	"github.com/carnet-digital/carnet/gateway"
	"github.com/carnet-digital/carnet/handler"
	"github.com/carnet-digital/carnet/internal/config"
	"github.com/carnet-digital/carnet/internal/logging"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// NewGatewayCommand creates the command that runs the API gateway.
func NewGatewayCommand(configFile *string) *cobra.Command {
	return &cobra.Command{
		Use:   "gateway",
		Short: "Run the API gateway in front of the auth, user and catalog services",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(*configFile)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			logger, closeLog, err := logging.New(cfg.Logger)
			if err != nil {
				return fmt.Errorf("failed to set up logging: %w", err)
			}
			defer closeLog()

			h, err := gatewayHandler(cfg, logger)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			srv := newServer(cfg.ListenAddr(cfg.Server.GatewayPort), h)
			return serve(ctx, logger.WithField("service", "gateway"), srv, cfg.Server.ShutdownTimeout)
		},
	}
}

// gatewayHandler builds the route table from cfg and puts request ids and
// access logging in front of it.
func gatewayHandler(cfg *config.Config, logger logrus.FieldLogger) (http.Handler, error) {
	validator := client.NewAuthClient(cfg.Services.AuthURL,
		client.WithTimeout(cfg.Services.Timeout),
		client.WithBreaker(cfg.Breaker),
		client.WithLogger(logger),
	)

	routes := make([]gateway.Route, 0, len(cfg.Gateway.Routes))
	for _, r := range cfg.Gateway.Routes {
		routes = append(routes, gateway.Route{
			Prefix:      r.Prefix,
			Upstream:    r.Upstream,
			Public:      r.Public,
			StripPrefix: r.StripPrefix,
		})
	}

	gw, err := gateway.New(routes, validator,
		gateway.WithLogger(logger),
		gateway.WithBreaker(cfg.Breaker),
	)
	if err != nil {
		return nil, err
	}

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery(), handler.RequestContext(), handler.AccessLog(logger))
	r.NoRoute(gin.WrapH(gw))
	return r, nil
}
