package errors

import (
	"net/http"

	"google.golang.org/grpc/codes"
)

// CodePair maps an error code onto HTTP and gRPC.
type CodePair struct {
	HTTPStatus int
	GRPCCode   codes.Code
}

var codeMapping = map[string]CodePair{
	ErrInternal:            {http.StatusInternalServerError, codes.Internal},
	ErrNotFound:            {http.StatusNotFound, codes.NotFound},
	ErrInvalidArgument:     {http.StatusBadRequest, codes.InvalidArgument},
	ErrUnauthenticated:     {http.StatusUnauthorized, codes.Unauthenticated},
	ErrUnauthorized:        {http.StatusForbidden, codes.PermissionDenied},
	ErrConflict:            {http.StatusConflict, codes.Aborted},
	ErrTimeout:             {http.StatusGatewayTimeout, codes.DeadlineExceeded},
	ErrNotImplemented:      {http.StatusNotImplemented, codes.Unimplemented},
	ErrValidation:          {http.StatusUnprocessableEntity, codes.InvalidArgument},
	ErrUnprocessable:       {http.StatusBadRequest, codes.FailedPrecondition},
	ErrExpired:             {http.StatusGone, codes.FailedPrecondition},
	ErrInsufficientBalance: {http.StatusPaymentRequired, codes.FailedPrecondition},
}

// GetCodeMapping returns the HTTP status and gRPC code for an error code.
// Unknown codes map to internal.
func GetCodeMapping(code string) (int, codes.Code) {
	if pair, ok := codeMapping[code]; ok {
		return pair.HTTPStatus, pair.GRPCCode
	}
	return http.StatusInternalServerError, codes.Internal
}
