package grpc

import (
	"context"
	"errors"

	grpc "google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"

	"channel-service/internal/models"
)

const (
	getUserMethod   = "/user.UserInternal/GetUser"
	bulkUsersMethod = "/user.UserInternal/BulkUsers"
)

var ErrUserNotFound = errors.New("user not found")

// UserClient calls the user directory service.
type UserClient struct {
	conn grpc.ClientConnInterface
}

// NewUserClient constructs the wrapper.
func NewUserClient(conn grpc.ClientConnInterface) *UserClient {
	return &UserClient{conn: conn}
}

// GetUser retrieves user details.
func (u *UserClient) GetUser(ctx context.Context, tenantID, userID int64) (models.UserProfile, error) {
	req, err := structpb.NewStruct(map[string]any{"tenant_id": tenantID, "user_id": userID})
	if err != nil {
		return models.UserProfile{}, err
	}
	resp := &structpb.Struct{}
	if err := u.conn.Invoke(ctx, getUserMethod, req, resp); err != nil {
		return models.UserProfile{}, err
	}
	profile := profileFromStruct(tenantID, resp)
	if profile.ID == 0 {
		return models.UserProfile{}, ErrUserNotFound
	}
	return profile, nil
}

// BulkUsers fetches multiple users in one call. Unknown ids are omitted.
func (u *UserClient) BulkUsers(ctx context.Context, tenantID int64, ids []int64) ([]models.UserProfile, error) {
	if len(ids) == 0 {
		return []models.UserProfile{}, nil
	}
	list := make([]any, 0, len(ids))
	for _, id := range ids {
		list = append(list, id)
	}
	req, err := structpb.NewStruct(map[string]any{"tenant_id": tenantID, "ids": list})
	if err != nil {
		return nil, err
	}
	resp := &structpb.Struct{}
	if err := u.conn.Invoke(ctx, bulkUsersMethod, req, resp); err != nil {
		return nil, err
	}
	users := resp.GetFields()["users"].GetListValue().GetValues()
	out := make([]models.UserProfile, 0, len(users))
	for _, v := range users {
		if profile := profileFromStruct(tenantID, v.GetStructValue()); profile.ID != 0 {
			out = append(out, profile)
		}
	}
	return out, nil
}

func profileFromStruct(tenantID int64, s *structpb.Struct) models.UserProfile {
	fields := s.GetFields()
	return models.UserProfile{
		ID:          int64(fields["id"].GetNumberValue()),
		TenantID:    tenantID,
		Username:    fields["username"].GetStringValue(),
		DisplayName: fields["display_name"].GetStringValue(),
		AvatarURL:   fields["avatar_url"].GetStringValue(),
	}
}
