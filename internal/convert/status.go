package convert

import (
	"context"
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/and161185/clipsync/internal/errs"
)

// Detail strings let the client tell sentinels apart that share a code.
var sentinels = []struct {
	err  error
	code codes.Code
}{
	{errs.ErrNotFound, codes.NotFound},
	{errs.ErrSessionInvalid, codes.NotFound},
	{errs.ErrContentEmpty, codes.InvalidArgument},
	{errs.ErrContentTooLarge, codes.InvalidArgument},
	{errs.ErrAttachmentTooLarge, codes.InvalidArgument},
	{errs.ErrInvalidAttachment, codes.InvalidArgument},
	{errs.ErrAlreadyExists, codes.AlreadyExists},
	{errs.ErrRateLimited, codes.ResourceExhausted},
	{errs.ErrStorage, codes.Unavailable},
	{errs.ErrChannel, codes.Unavailable},
	{errs.ErrNotConnected, codes.Unavailable},
}

// ToStatus maps a service error to a gRPC status error. The sentinel text is
// the status message so FromStatus can restore it.
func ToStatus(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}
	switch {
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	}
	for _, s := range sentinels {
		if errors.Is(err, s.err) {
			return status.Error(s.code, s.err.Error())
		}
	}
	return status.Error(codes.Internal, "internal error")
}

// FromStatus maps a gRPC status error back to the matching sentinel. Transport
// failures become errs.ErrNotConnected.
func FromStatus(err error) error {
	if err == nil {
		return nil
	}
	st, ok := status.FromError(err)
	if !ok {
		return err
	}
	for _, s := range sentinels {
		if st.Code() == s.code && st.Message() == s.err.Error() {
			return s.err
		}
	}
	switch st.Code() {
	case codes.NotFound:
		return errs.ErrNotFound
	case codes.Unavailable:
		return errs.ErrNotConnected
	case codes.Canceled:
		return context.Canceled
	case codes.DeadlineExceeded:
		return context.DeadlineExceeded
	}
	return err
}
