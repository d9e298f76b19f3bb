package lambda

import (
	"context"
	"net/http"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/awslabs/aws-lambda-go-api-proxy/httpadapter"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/auth-fusion/authfusion/internal/server"
)

// LambdaHandlerParams represents the parameters required for
// the Lambda handler.
type LambdaHandlerParams struct {
	fx.In

	// Config is the configuration for the Lambda handler.
	Config Config

	// Handlers are the scan and health routes.
	Handlers []*server.HttpHandler `group:"handlers"`

	// Context is the context for the Lambda handler.
	Context context.Context

	// Logger is the logger for the Lambda handler.
	Logger *zap.Logger
}

// LambdaHandler serves the http routes to AWS Lambda proxy events.
type LambdaHandler struct {
	source ProxySource
	ctx    context.Context
	cancel context.CancelFunc
	mux    *http.ServeMux
	log    *zap.Logger
}

// NewLambdaHandler creates a new instance of LambdaHandler
// with the given parameters.
func NewLambdaHandler(params LambdaHandlerParams) (*LambdaHandler, error) {
	source, err := ParseProxySource(params.Config.ProxySource.String())
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(params.Context)

	mux := http.NewServeMux()

	for _, handler := range params.Handlers {
		mux.Handle(handler.Name, handler.Handler)
	}

	return &LambdaHandler{
		source: source,
		ctx:    ctx,
		cancel: cancel,
		mux:    mux,
		log:    params.Logger,
	}, nil
}

// NewLifecycleHandler creates a new instance of LambdaHandler
// with the given parameters and attaches lifecycle hooks to
// start and stop the handler.
func NewLifecycleHandler(params LambdaHandlerParams, lc fx.Lifecycle) (*LambdaHandler, error) {
	handler, err := NewLambdaHandler(params)
	if err != nil {
		return nil, err
	}

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			handler.Start()
			return nil
		},
		OnStop: func(context.Context) error {
			handler.Shutdown()
			return nil
		},
	})
	return handler, nil
}

// Start starts the Lambda runtime client in a new goroutine.
func (s *LambdaHandler) Start() {
	s.log.Debug("using lambda event proxy", zap.Stringer("proxy_source", s.source))

	go lambda.StartWithOptions(s.ProxyFunction(), lambda.WithContext(s.ctx))
}

// Shutdown cancels the execution of the LambdaHandler.
func (s *LambdaHandler) Shutdown() {
	s.cancel()
}

// ProxyFunction returns the lambda handler function translating events of
// the configured source into requests on the route mux.
func (s *LambdaHandler) ProxyFunction() any {
	switch s.source {
	case ProxySourceApiGatewayV1:
		return httpadapter.New(s.mux).ProxyWithContext
	case ProxySourceAlb:
		return httpadapter.NewALB(s.mux).ProxyWithContext
	default:
		return httpadapter.NewV2(s.mux).ProxyWithContext
	}
}
