package assistant

import (
	"context"
	"sync"

	"pixelcraft/internal/adapter/supervisor"
	assistantrpc "pixelcraft/internal/rpc/assistant"
	"pixelcraft/internal/rpc/codec"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// Client dials the assistant adapter lazily, launching the child process
// through the supervisor on first use.
type Client struct {
	addr       string
	supervisor *supervisor.Supervisor

	mu     sync.Mutex
	conn   *grpc.ClientConn
	client assistantrpc.AssistantClient
}

func NewClient(addr string, sup *supervisor.Supervisor) *Client {
	return &Client{
		addr:       addr,
		supervisor: sup,
	}
}

func (c *Client) Chat(ctx context.Context, req *assistantrpc.ChatRequest) (*assistantrpc.ChatResponse, error) {
	client, err := c.getClient(ctx)
	if err != nil {
		return nil, err
	}
	return client.Chat(ctx, req)
}

func (c *Client) Health(ctx context.Context) (*assistantrpc.HealthResponse, error) {
	client, err := c.getClient(ctx)
	if err != nil {
		return nil, err
	}
	return client.Health(ctx, &assistantrpc.HealthRequest{})
}

func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return nil
	}
	err := c.conn.Close()
	c.conn = nil
	c.client = nil
	return err
}

func (c *Client) getClient(ctx context.Context) (assistantrpc.AssistantClient, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.supervisor != nil {
		if err := c.supervisor.EnsureRunning(ctx); err != nil {
			return nil, err
		}
	}
	if c.client != nil {
		return c.client, nil
	}

	conn, err := grpc.DialContext(
		ctx,
		c.addr,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.ForceCodec(codec.JSONCodec{})),
	)
	if err != nil {
		return nil, err
	}
	c.conn = conn
	c.client = assistantrpc.NewAssistantClient(conn)
	return c.client, nil
}
