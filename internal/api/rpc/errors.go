package rpc

import (
	"errors"
	"fmt"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/GriffinCanCode/gatedev/internal/domain/chardev"
)

var codeMap = []struct {
	err  error
	code codes.Code
}{
	{chardev.ErrOutOfRange, codes.OutOfRange},
	{chardev.ErrNotFound, codes.NotFound},
	{chardev.ErrShutdown, codes.Unavailable},
	{chardev.ErrSessionClosed, codes.FailedPrecondition},
	{chardev.ErrInterrupted, codes.Canceled},
}

// toStatus converts a device error into a gRPC status error.
func toStatus(err error) error {
	if err == nil {
		return nil
	}
	for _, m := range codeMap {
		if errors.Is(err, m.err) {
			return status.Error(m.code, err.Error())
		}
	}
	return status.Error(codes.Internal, err.Error())
}

// fromStatus turns a status error from the server back into an error that
// matches the device sentinels with errors.Is.
func fromStatus(err error) error {
	st, ok := status.FromError(err)
	if !ok {
		return err
	}
	for _, m := range codeMap {
		if st.Code() == m.code {
			return fmt.Errorf("%s: %w", st.Message(), m.err)
		}
	}
	return err
}
