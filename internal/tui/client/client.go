package client

import (
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	campusv1 "github.com/matheus3301/campusmsg/internal/api/campusv1"
)

// Client wraps gRPC connections to the daemon.
type Client struct {
	conn    *grpc.ClientConn
	Session campusv1.SessionServiceClient
	Chat    campusv1.ChatServiceClient
	Message campusv1.MessageServiceClient
}

// New dials the daemon's Unix domain socket and returns typed service clients.
func New(socketPath string) (*Client, error) {
	conn, err := grpc.NewClient(
		"unix://"+socketPath,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		return nil, fmt.Errorf("dial daemon: %w", err)
	}

	return &Client{
		conn:    conn,
		Session: campusv1.NewSessionServiceClient(conn),
		Chat:    campusv1.NewChatServiceClient(conn),
		Message: campusv1.NewMessageServiceClient(conn),
	}, nil
}

// Close closes the gRPC connection.
func (c *Client) Close() error {
	return c.conn.Close()
}
