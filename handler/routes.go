package handler

import (
	"go.uber.org/fx"

	"github.com/auth-fusion/authfusion/handler/schema"
	"github.com/auth-fusion/authfusion/internal/server"
)

func NewScanRoute(handler *ScanHandler) server.HttpHandlerResult {
	return server.AsHttpHandler("/scan", handler)
}

func NewHealthRoute(handler *HealthHandler) server.HttpHandlerResult {
	return server.AsHttpHandler("/health", handler)
}

func Module() fx.Option {
	return fx.Module("handler",
		fx.Provide(schema.NewScanRequestSchema),
		fx.Provide(NewScanHandler),
		fx.Provide(NewHealthHandler),
		fx.Provide(NewScanRoute),
		fx.Provide(NewHealthRoute),
	)
}
