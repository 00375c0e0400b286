package grpc

import (
	"errors"
	"fmt"
	"testing"

	"github.com/dmitrijs2005/docvault/internal/common"
	"github.com/stretchr/testify/assert"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestToStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code codes.Code
		msg  string
	}{
		{"validation", fmt.Errorf("%w: bad name", common.ErrValidation), codes.InvalidArgument, "validation error: bad name"},
		{"authentication", common.ErrUserMismatch, codes.Unauthenticated, common.ErrUserMismatch.Error()},
		{"authorization", common.ErrShareExpired, codes.PermissionDenied, common.ErrShareExpired.Error()},
		{"not found", common.ErrUserNotFound, codes.NotFound, common.ErrUserNotFound.Error()},
		{"conflict", common.ErrDuplicateUser, codes.AlreadyExists, common.ErrDuplicateUser.Error()},
		{"rate limit", common.ErrCooldownActive, codes.ResourceExhausted, common.ErrCooldownActive.Error()},
		{"dependency hides detail", fmt.Errorf("%w: smtp 550", common.ErrNotificationDeliveryFailed), codes.Unavailable, "service temporarily unavailable"},
		{"unknown hides detail", errors.New("pq: password=secret"), codes.Internal, "internal error"},
		{"status passes through", status.Error(codes.Canceled, "gone"), codes.Canceled, "gone"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := status.Convert(toStatus(tt.err))
			assert.Equal(t, tt.code, st.Code())
			assert.Equal(t, tt.msg, st.Message())
		})
	}
	assert.NoError(t, toStatus(nil))
}
