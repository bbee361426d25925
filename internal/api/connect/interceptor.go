package connect

import (
	"context"

	"connectrpc.com/connect"
	"github.com/cockroachdb/errors"
)

const (
	// ControlTokenHeader is the header name for the control token.
	ControlTokenHeader = "X-Control-Token"
)

var errBadToken = errors.New("missing or invalid control token")

// NewControlTokenInterceptor creates an interceptor that validates the
// control token on procedures that change the game. Read-only procedures
// pass through.
func NewControlTokenInterceptor(token string) connect.UnaryInterceptorFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			if !mutatingProcedures[req.Spec().Procedure] {
				return next(ctx, req)
			}

			if req.Header().Get(ControlTokenHeader) != token {
				return nil, connect.NewError(connect.CodeUnauthenticated, errBadToken)
			}

			return next(ctx, req)
		}
	}
}
