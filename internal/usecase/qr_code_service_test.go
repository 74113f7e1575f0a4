package usecase_test

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/wekeepgrowing/qr-payment/internal/domain/dto"
	domainErrors "github.com/wekeepgrowing/qr-payment/internal/domain/errors"
	"github.com/wekeepgrowing/qr-payment/internal/infrastructure/qrcode"
	"github.com/wekeepgrowing/qr-payment/internal/usecase"
)

func newQRCodeService(t *testing.T) (*usecase.QRCodeService, *testClock) {
	t.Helper()
	clock := newTestClock()
	renderer, err := qrcode.NewRenderer("M")
	require.NoError(t, err)

	svc := usecase.NewQRCodeService(newFakeCache(clock), renderer, usecase.QRSettings{
		ExpiryWindow: 5 * time.Minute,
		Size:         300,
		Format:       "png",
	}, nil, zap.NewNop())
	svc.SetClock(clock.Now)
	return svc, clock
}

func TestQRCodeService_Issue(t *testing.T) {
	ctx := context.Background()

	t.Run("renders png and tracks expiry", func(t *testing.T) {
		svc, clock := newQRCodeService(t)

		code, err := svc.Issue(ctx, "qr_1", dto.QROptions{})
		require.NoError(t, err)

		assert.Equal(t, "qr_1", code.SessionID)
		assert.Equal(t, "png", code.Format)
		assert.True(t, strings.HasPrefix(code.DataURI, "data:image/png;base64,"))
		assert.Equal(t, clock.Now().Add(5*time.Minute), code.ExpiresAt)

		exp, err := svc.Expiry(ctx, "qr_1")
		require.NoError(t, err)
		require.NotNil(t, exp)
		assert.True(t, code.ExpiresAt.Equal(*exp))

		valid, err := svc.Valid(ctx, "qr_1")
		require.NoError(t, err)
		assert.True(t, valid)
	})

	t.Run("svg override", func(t *testing.T) {
		svc, _ := newQRCodeService(t)

		code, err := svc.Issue(ctx, "qr_1", dto.QROptions{Format: "svg", Size: 200})
		require.NoError(t, err)
		require.True(t, strings.HasPrefix(code.DataURI, "data:image/svg+xml;base64,"))

		raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(code.DataURI, "data:image/svg+xml;base64,"))
		require.NoError(t, err)
		assert.Contains(t, string(raw), "<svg")
	})

	t.Run("code expires with the window", func(t *testing.T) {
		svc, clock := newQRCodeService(t)
		_, err := svc.Issue(ctx, "qr_1", dto.QROptions{})
		require.NoError(t, err)

		clock.Advance(5 * time.Minute)
		valid, err := svc.Valid(ctx, "qr_1")
		require.NoError(t, err)
		assert.False(t, valid)

		exp, err := svc.Expiry(ctx, "qr_1")
		require.NoError(t, err)
		assert.Nil(t, exp)
	})

	t.Run("rejects bad options", func(t *testing.T) {
		svc, _ := newQRCodeService(t)

		tests := []struct {
			name  string
			opts  dto.QROptions
			field string
		}{
			{"too small", dto.QROptions{Size: 99}, "size"},
			{"too large", dto.QROptions{Size: 1001}, "size"},
			{"unknown format", dto.QROptions{Format: "gif"}, "format"},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				_, err := svc.Issue(ctx, "qr_1", tt.opts)
				var invalid *domainErrors.InvalidInputError
				require.ErrorAs(t, err, &invalid)
				assert.Equal(t, tt.field, invalid.Field)
			})
		}
	})
}

func TestQRCodeService_Reissue(t *testing.T) {
	ctx := context.Background()

	t.Run("new expiry is strictly later without clock movement", func(t *testing.T) {
		svc, _ := newQRCodeService(t)

		first, err := svc.Issue(ctx, "qr_1", dto.QROptions{})
		require.NoError(t, err)
		second, err := svc.Reissue(ctx, "qr_1", dto.QROptions{})
		require.NoError(t, err)

		assert.True(t, second.ExpiresAt.After(first.ExpiresAt))
	})

	t.Run("restarts the window", func(t *testing.T) {
		svc, clock := newQRCodeService(t)

		first, err := svc.Issue(ctx, "qr_1", dto.QROptions{})
		require.NoError(t, err)
		clock.Advance(2 * time.Minute)
		second, err := svc.Reissue(ctx, "qr_1", dto.QROptions{})
		require.NoError(t, err)

		assert.Equal(t, first.ExpiresAt.Add(2*time.Minute), second.ExpiresAt)
	})

	t.Run("never issued", func(t *testing.T) {
		svc, clock := newQRCodeService(t)

		code, err := svc.Reissue(ctx, "qr_1", dto.QROptions{})
		require.NoError(t, err)
		assert.Equal(t, clock.Now().Add(5*time.Minute), code.ExpiresAt)
	})
}

func TestDecodeQRPayload(t *testing.T) {
	valid, err := json.Marshal(usecase.QRPayload{SessionID: "qr_1", Timestamp: 1700000000, Type: "payment_request", Version: "1.0"})
	require.NoError(t, err)

	tests := []struct {
		name    string
		data    string
		wantErr bool
	}{
		{"valid payload", string(valid), false},
		{"not json", "qr_1", true},
		{"missing session", `{"type":"payment_request"}`, true},
		{"wrong type", `{"session_id":"qr_1","type":"login"}`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := usecase.DecodeQRPayload(tt.data)
			if tt.wantErr {
				var invalid *domainErrors.InvalidInputError
				assert.ErrorAs(t, err, &invalid)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "qr_1", p.SessionID)
			assert.Equal(t, "1.0", p.Version)
		})
	}
}
