package api

import (
	"context"
	"errors"

	"google.golang.org/grpc/codes"
	grpcstatus "google.golang.org/grpc/status"

	"github.com/matheus3301/campusmsg/internal/chat"
	"github.com/matheus3301/campusmsg/internal/gate"
	"github.com/matheus3301/campusmsg/internal/mutation"
	"github.com/matheus3301/campusmsg/internal/paging"
	"github.com/matheus3301/campusmsg/internal/remote"
	chatsync "github.com/matheus3301/campusmsg/internal/sync"
)

var codeTable = []struct {
	err  error
	code codes.Code
}{
	{mutation.ErrEmptyText, codes.InvalidArgument},
	{mutation.ErrInvalidType, codes.InvalidArgument},
	{mutation.ErrMissingFile, codes.InvalidArgument},
	{chat.ErrInvalidKey, codes.InvalidArgument},
	{mutation.ErrNotFound, codes.NotFound},
	{chatsync.ErrNoOpenChat, codes.FailedPrecondition},
	{mutation.ErrNoOpenChat, codes.FailedPrecondition},
	{mutation.ErrNotOwner, codes.FailedPrecondition},
	{mutation.ErrRemoved, codes.FailedPrecondition},
	{mutation.ErrNotEditable, codes.FailedPrecondition},
	{mutation.ErrWindowExpired, codes.FailedPrecondition},
	{paging.ErrExhausted, codes.FailedPrecondition},
	{gate.ErrMutationInFlight, codes.Aborted},
	{paging.ErrBusy, codes.Aborted},
	{chatsync.ErrStale, codes.Aborted},
	{context.DeadlineExceeded, codes.DeadlineExceeded},
	{context.Canceled, codes.Canceled},
}

// rpcError maps engine and controller errors to gRPC status errors.
// Anything unrecognized came from the backend round trip.
func rpcError(err error) error {
	if err == nil {
		return nil
	}
	var f *mutation.Failure
	if errors.As(err, &f) {
		return grpcstatus.Error(codes.Unavailable, f.Message)
	}
	for _, e := range codeTable {
		if errors.Is(err, e.err) {
			return grpcstatus.Error(e.code, err.Error())
		}
	}
	return grpcstatus.Error(codes.Unavailable, remote.UserMessage(err, err.Error()))
}
