package grpc

import (
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/dmitrijs2005/docvault/internal/common"
)

var kindCodes = map[common.Kind]codes.Code{
	common.KindValidation:     codes.InvalidArgument,
	common.KindAuthentication: codes.Unauthenticated,
	common.KindAuthorization:  codes.PermissionDenied,
	common.KindNotFound:       codes.NotFound,
	common.KindConflict:       codes.AlreadyExists,
	common.KindRateLimit:      codes.ResourceExhausted,
	common.KindDependency:     codes.Unavailable,
}

// toStatus translates a service error into a gRPC status. Dependency and
// unclassified failures never carry their underlying detail.
func toStatus(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}

	kind := common.KindOf(err)
	switch kind {
	case common.KindUnknown:
		return status.Error(codes.Internal, "internal error")
	case common.KindDependency:
		return status.Error(codes.Unavailable, "service temporarily unavailable")
	}
	return status.Error(kindCodes[kind], err.Error())
}
