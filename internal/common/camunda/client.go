package camunda

import (
	"context"
	"fmt"
	"strings"
	"time"

	"shopgenie-workers/internal/common/config"
	"shopgenie-workers/internal/common/errors"

	"github.com/camunda/zeebe/clients/go/v8/pkg/zbc"
)

type Client struct {
	client zbc.Client
	config *ClientConfig
}

type ClientConfig struct {
	GatewayAddress         string
	UsePlaintextConnection bool
	ConnectionTimeout      time.Duration
	RequestTimeout         time.Duration
}

// NewClient connects to the gateway named in the camunda section of the config.
// Zero timeouts fall back to 10s for the connection and 30s per request.
func NewClient(cfg config.CamundaConfig) (*Client, error) {
	return NewClientWithConfig(clientConfigFrom(cfg))
}

func clientConfigFrom(cfg config.CamundaConfig) *ClientConfig {
	cc := &ClientConfig{
		GatewayAddress:         cfg.BrokerAddress,
		UsePlaintextConnection: true,
		ConnectionTimeout:      10 * time.Second,
		RequestTimeout:         30 * time.Second,
	}
	if cfg.Timeout > 0 {
		cc.ConnectionTimeout = time.Duration(cfg.Timeout) * time.Millisecond
	}
	if cfg.RequestTimeout > 0 {
		cc.RequestTimeout = time.Duration(cfg.RequestTimeout) * time.Millisecond
	}
	return cc
}

func NewClientWithConfig(config *ClientConfig) (*Client, error) {
	zeebeClient, err := zbc.NewClient(&zbc.ClientConfig{
		GatewayAddress:         config.GatewayAddress,
		UsePlaintextConnection: config.UsePlaintextConnection,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Zeebe client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), config.ConnectionTimeout)
	defer cancel()

	if _, err := zeebeClient.NewTopologyCommand().Send(ctx); err != nil {
		zeebeClient.Close()
		return nil, mapZeebeError(fmt.Errorf("connect to %s: %w", config.GatewayAddress, err), "topology")
	}

	return &Client{
		client: zeebeClient,
		config: config,
	}, nil
}

func (c *Client) GetClient() zbc.Client {
	return c.client
}

func (c *Client) Close() error {
	return c.client.Close()
}

// HealthCheck asks the gateway for its topology and fails when no broker has joined.
func (c *Client) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.config.RequestTimeout)
	defer cancel()

	topology, err := c.client.NewTopologyCommand().Send(ctx)
	if err != nil {
		return mapZeebeError(err, "topology")
	}
	if len(topology.GetBrokers()) == 0 {
		return errors.NewExternalServiceError("zeebe", fmt.Errorf("gateway %s reports no brokers", c.config.GatewayAddress))
	}
	return nil
}

func mapZeebeError(err error, operation string) error {
	lowerMsg := strings.ToLower(err.Error())
	wrapped := fmt.Errorf("Zeebe operation '%s' failed: %w", operation, err)

	switch {
	case strings.Contains(lowerMsg, "timeout") ||
		strings.Contains(lowerMsg, "deadline exceeded"):
		return errors.NewTimeoutError("zeebe", wrapped)
	default:
		return errors.NewExternalServiceError("zeebe", wrapped)
	}
}
