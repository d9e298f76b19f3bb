package lambda

import (
	"context"
	"io"
	"net/http"
	"testing"

	"github.com/aws/aws-lambda-go/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/auth-fusion/authfusion/internal/server"
)

func newHandler(t *testing.T, source ProxySource) *LambdaHandler {
	t.Helper()

	health := server.AsHttpHandler("/health", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"status":"ok"}`)
	}))

	h, err := NewLambdaHandler(LambdaHandlerParams{
		Config:   Config{ProxySource: source},
		Handlers: []*server.HttpHandler{health.Handler},
		Context:  context.Background(),
		Logger:   zap.NewNop(),
	})
	require.NoError(t, err)
	t.Cleanup(h.Shutdown)

	return h
}

func TestParseProxySource(t *testing.T) {
	for in, want := range map[string]ProxySource{
		"API_GW_V1": ProxySourceApiGatewayV1,
		"api_gw_v2": ProxySourceApiGatewayV2,
		" alb ":     ProxySourceAlb,
	} {
		got, err := ParseProxySource(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	_, err := ParseProxySource("SQS")
	assert.Error(t, err)
}

func TestNewLambdaHandler_InvalidSource(t *testing.T) {
	_, err := NewLambdaHandler(LambdaHandlerParams{
		Config:  Config{ProxySource: "SQS"},
		Context: context.Background(),
		Logger:  zap.NewNop(),
	})
	assert.Error(t, err)
}

func TestLambdaHandler_ApiGatewayV2(t *testing.T) {
	proxy, ok := newHandler(t, ProxySourceApiGatewayV2).ProxyFunction().(func(context.Context, events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error))
	require.True(t, ok)

	res, err := proxy(context.Background(), events.APIGatewayV2HTTPRequest{
		RawPath: "/health",
		RequestContext: events.APIGatewayV2HTTPRequestContext{
			HTTP: events.APIGatewayV2HTTPRequestContextHTTPDescription{Method: http.MethodGet, Path: "/health"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.JSONEq(t, `{"status":"ok"}`, res.Body)
}

func TestLambdaHandler_ApiGatewayV1(t *testing.T) {
	proxy, ok := newHandler(t, ProxySourceApiGatewayV1).ProxyFunction().(func(context.Context, events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error))
	require.True(t, ok)

	res, err := proxy(context.Background(), events.APIGatewayProxyRequest{
		Path:       "/health",
		HTTPMethod: http.MethodGet,
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, res.StatusCode)
}

func TestLambdaHandler_ALB(t *testing.T) {
	_, ok := newHandler(t, ProxySourceAlb).ProxyFunction().(func(context.Context, events.ALBTargetGroupRequest) (events.ALBTargetGroupResponse, error))
	assert.True(t, ok)
}
