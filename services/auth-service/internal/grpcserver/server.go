//go:build protogen

package grpcserver

import (
	"context"

	amikov1 "github.com/amiko-app/amiko/protos/gen/amiko/v1"
	"github.com/amiko-app/amiko/services/auth-service/internal/storage"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type server struct {
	amikov1.UnimplementedProfileServiceServer
	users *storage.UserRepository
}

func Register(grpcServer *grpc.Server, users *storage.UserRepository) {
	amikov1.RegisterProfileServiceServer(grpcServer, &server{users: users})
}

func (s *server) GetProfile(ctx context.Context, req *amikov1.ProfileRequest) (*amikov1.ProfileResponse, error) {
	if req.GetUserId() == "" {
		return nil, status.Error(codes.InvalidArgument, "user_id is required")
	}
	user, err := s.users.GetByID(ctx, req.GetUserId())
	if err != nil {
		if storage.IsNotFound(err) {
			return nil, status.Error(codes.NotFound, "user not found")
		}
		return nil, status.Error(codes.Internal, "profile lookup failed")
	}
	return &amikov1.ProfileResponse{
		UserId:     user.ID,
		Timezone:   user.Timezone,
		Phone:      user.Phone,
		NativeLang: user.NativeLang,
	}, nil
}
