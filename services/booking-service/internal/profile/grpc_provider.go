//go:build protogen

package profile

import (
	"context"
	"time"

	"github.com/amiko-app/amiko/libs/grpcx"
	amikov1 "github.com/amiko-app/amiko/protos/gen/amiko/v1"
)

type grpcProvider struct {
	client amikov1.ProfileServiceClient
}

func NewGRPCProvider(addr string) (Provider, error) {
	if addr == "" {
		return nil, nil
	}
	conn, err := grpcx.Dial(context.Background(), addr, grpcx.DialOptions{Timeout: 3 * time.Second})
	if err != nil {
		return nil, err
	}
	return &grpcProvider{client: amikov1.NewProfileServiceClient(conn)}, nil
}

func (p *grpcProvider) Profile(ctx context.Context, userID string) (string, string, error) {
	resp, err := p.client.GetProfile(ctx, &amikov1.ProfileRequest{UserId: userID})
	if err != nil {
		return "", "", err
	}
	return resp.GetTimezone(), resp.GetPhone(), nil
}
