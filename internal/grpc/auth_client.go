package grpc

import (
	"context"
	"errors"

	grpc "google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"

	"channel-service/internal/models"
)

const validateTokenMethod = "/auth.AuthService/ValidateToken"

// ErrInvalidToken is returned when the auth service rejects a token.
var ErrInvalidToken = errors.New("invalid token")

// AuthClient calls the auth service. Requests and responses travel as google.protobuf.Struct, so
// the peer must serve this wire contract rather than a typed ValidateTokenRequest:
//
//	request:  {"token": string}
//	response: {"valid": bool, "user_id": number, "tenant_id": number, "display_name": string}
//
// A response without valid=true and non-zero ids is a rejection. Deployments whose auth service
// only speaks typed messages run with auth.mode=jwt.
type AuthClient struct {
	conn grpc.ClientConnInterface
}

// NewAuthClient constructs the wrapper.
func NewAuthClient(conn grpc.ClientConnInterface) *AuthClient {
	return &AuthClient{conn: conn}
}

// ValidateToken verifies the token and returns the caller's identity.
func (a *AuthClient) ValidateToken(ctx context.Context, token string) (models.Principal, error) {
	req, err := structpb.NewStruct(map[string]any{"token": token})
	if err != nil {
		return models.Principal{}, err
	}
	resp := &structpb.Struct{}
	if err := a.conn.Invoke(ctx, validateTokenMethod, req, resp); err != nil {
		return models.Principal{}, err
	}
	fields := resp.GetFields()
	userID := int64(fields["user_id"].GetNumberValue())
	tenantID := int64(fields["tenant_id"].GetNumberValue())
	if !fields["valid"].GetBoolValue() || userID == 0 || tenantID == 0 {
		return models.Principal{}, ErrInvalidToken
	}
	return models.Principal{
		UserID:      userID,
		TenantID:    tenantID,
		DisplayName: fields["display_name"].GetStringValue(),
	}, nil
}
