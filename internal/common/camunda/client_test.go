package camunda

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"heart-risk-workers/internal/common/config"
	"heart-risk-workers/internal/common/errors"
)

func testClient(maxRetries int) *Client {
	return &Client{config: &ClientConfig{
		ConnectionTimeout: time.Second,
		RetryConfig:       &RetryConfig{MaxRetries: maxRetries, BaseDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond},
	}}
}

func TestExecuteWithRetry_RecoversFromTransientErrors(t *testing.T) {
	c := testClient(3)
	calls := 0

	result, err := c.ExecuteWithRetry(context.Background(), func(ctx context.Context) (interface{}, error) {
		calls++
		if calls < 3 {
			return nil, stderrors.New("rpc error: code = Unavailable desc = connection refused")
		}
		return "ok", nil
	}, "topology")

	require.NoError(t, err)
	assert.Equal(t, "ok", result)
	assert.Equal(t, 3, calls)
}

func TestExecuteWithRetry_PermanentErrorNotRetried(t *testing.T) {
	c := testClient(3)
	calls := 0

	_, err := c.ExecuteWithRetry(context.Background(), func(ctx context.Context) (interface{}, error) {
		calls++
		return nil, stderrors.New("permission denied")
	}, "complete")

	require.Error(t, err)
	assert.Equal(t, 1, calls)
	assert.Equal(t, errors.ErrCodeAuthentication, errors.AsStandardError(err).Code)
}

func TestExecuteWithRetry_GivesUp(t *testing.T) {
	c := testClient(2)
	calls := 0

	_, err := c.ExecuteWithRetry(context.Background(), func(ctx context.Context) (interface{}, error) {
		calls++
		return nil, stderrors.New("context deadline exceeded")
	}, "topology")

	require.Error(t, err)
	assert.Equal(t, 3, calls)
	assert.Equal(t, errors.ErrCodeTimeout, errors.AsStandardError(err).Code)
}

func TestExecuteWithRetry_Cancelled(t *testing.T) {
	c := testClient(5)
	c.config.RetryConfig.BaseDelay = time.Second
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.ExecuteWithRetry(ctx, func(ctx context.Context) (interface{}, error) {
		return nil, stderrors.New("unavailable")
	}, "topology")

	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestMapZeebeError(t *testing.T) {
	tests := []struct {
		msg  string
		want errors.ErrorCode
	}{
		{"connection refused", errors.ErrCodeExternalService},
		{"deadline exceeded", errors.ErrCodeTimeout},
		{"job not found", errors.ErrCodeNotFound},
		{"unauthorized", errors.ErrCodeAuthentication},
		{"something odd", errors.ErrCodeExternalService},
	}

	for _, tt := range tests {
		t.Run(tt.msg, func(t *testing.T) {
			err := mapZeebeError(stderrors.New(tt.msg), "op", 0)
			assert.Equal(t, tt.want, errors.AsStandardError(err).Code)
		})
	}
}

func TestConfigFromApp(t *testing.T) {
	cc := ConfigFromApp(config.CamundaConfig{BrokerAddress: "zeebe:26500", Timeout: 30000, RequestTimeout: 5000})
	assert.Equal(t, "zeebe:26500", cc.GatewayAddress)
	assert.Equal(t, 30*time.Second, cc.ConnectionTimeout)
	assert.Equal(t, 5*time.Second, cc.RequestTimeout)
	assert.Equal(t, 10, cc.RetryConfig.MaxRetries)
}
