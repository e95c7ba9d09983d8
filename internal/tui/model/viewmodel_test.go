package model

import (
	"context"
	"net"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"

	campusv1 "github.com/matheus3301/campusmsg/internal/api/campusv1"
	"github.com/matheus3301/campusmsg/internal/tui/client"
)

type countingSession struct {
	touches     atomic.Int32
	foregrounds atomic.Int32
}

func (s *countingSession) GetSessionStatus(context.Context, *emptypb.Empty) (*campusv1.SessionStatus, error) {
	return &campusv1.SessionStatus{}, nil
}

func (s *countingSession) Touch(context.Context, *emptypb.Empty) (*emptypb.Empty, error) {
	s.touches.Add(1)
	return &emptypb.Empty{}, nil
}

func (s *countingSession) SetForeground(context.Context, *campusv1.SetForegroundRequest) (*emptypb.Empty, error) {
	s.foregrounds.Add(1)
	return &emptypb.Empty{}, nil
}

func newTestViewModel(t *testing.T, session campusv1.SessionServiceServer) *ViewModel {
	t.Helper()
	// Short path to stay under the Unix socket length limit.
	dir, err := os.MkdirTemp("/tmp", "campus-vm-*")
	require.NoError(t, err)
	t.Cleanup(func() { _ = os.RemoveAll(dir) })
	socketPath := filepath.Join(dir, "vm.sock")

	lis, err := net.Listen("unix", socketPath)
	require.NoError(t, err)
	srv := grpc.NewServer()
	campusv1.RegisterSessionServiceServer(srv, session)
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	c, err := client.New(socketPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return NewViewModel(c)
}

func TestTouchReachesDaemon(t *testing.T) {
	session := &countingSession{}
	vm := newTestViewModel(t, session)
	ctx := context.Background()

	require.NoError(t, vm.Touch(ctx))
	require.NoError(t, vm.Touch(ctx))

	assert.Equal(t, int32(2), session.touches.Load())
	assert.Equal(t, int32(0), session.foregrounds.Load())
}
