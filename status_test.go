package reachable

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStatus(t *testing.T) {
	require.True(t, Available().IsAvailable())
	require.True(t, Available().IsValid())
	require.Equal(t, ReasonNone, Available().Reason())
	require.Equal(t, "available", Available().String())

	s := Unavailable(ReasonTimeout)
	require.False(t, s.IsAvailable())
	require.True(t, s.IsValid())
	require.Equal(t, ReasonTimeout, s.Reason())
	require.Equal(t, "unavailable (timeout)", s.String())

	require.Equal(t, ReasonUnspecified, Unavailable(ReasonNone).Reason())

	var zero Status
	require.False(t, zero.IsValid())
	require.Equal(t, "invalid", zero.String())
}

func TestCheckTargetError_MatchesSentinels(t *testing.T) {
	tests := []struct {
		kind     CheckErrorKind
		sentinel error
		reason   Reason
	}{
		{CheckTimeout, ErrTimeout, ReasonTimeout},
		{CheckConnectionRefused, ErrConnectionRefused, ReasonConnectionRefused},
		{CheckPermissionDenied, ErrPermissionDenied, ReasonPermissionDenied},
		{CheckNoRoute, ErrNoRoute, ReasonNoRoute},
		{CheckResolve, ErrResolve, ReasonResolutionFailure},
	}

	for _, tt := range tests {
		t.Run(tt.kind.String(), func(t *testing.T) {
			err := fmt.Errorf("wrapped: %w", &CheckTargetError{Kind: tt.kind})

			require.ErrorIs(t, err, tt.sentinel)
			require.Equal(t, Unavailable(tt.reason), StatusFromError(err))

			for _, other := range tests {
				if other.kind != tt.kind {
					require.NotErrorIs(t, err, other.sentinel)
				}
			}
		})
	}
}

func TestStatusFromError(t *testing.T) {
	require.Equal(t, Available(), StatusFromError(nil))
	require.Equal(t, Unavailable(ReasonResolutionFailure), StatusFromError(&ResolveTargetError{Host: "example.com", Kind: ResolveNotFound}))
	require.Equal(t, Unavailable(ReasonUnknown), StatusFromError(context.Canceled))
	require.Equal(t, Unavailable(ReasonUnknown), StatusFromError(&CheckTargetError{Kind: CheckFailed}))
}

func TestResolveTargetError(t *testing.T) {
	cause := errors.New("server misbehaving")
	err := &ResolveTargetError{Host: "example.com", Kind: ResolveTemporary, Err: cause}

	require.ErrorIs(t, err, ErrResolve)
	require.ErrorIs(t, err, cause)
	require.Equal(t, "resolve example.com: temporary failure: server misbehaving", err.Error())
}
