package client

import (
	"context"
	"fmt"

	"campusbook/pkg/model"
)

const (
	RefreshTokenPath = "/auth/refresh-token"
)

type AuthClient struct {
	httpClient *HttpClient
}

func NewAuthClient(httpClient *HttpClient) *AuthClient {
	return &AuthClient{
		httpClient: httpClient,
	}
}

// Refresh exchanges a refresh token for a new token pair. Transport errors,
// non-2xx answers and success=false all come back as errors.
func (c *AuthClient) Refresh(ctx context.Context, refreshToken string) (*model.RefreshResult, error) {
	resp, err := c.httpClient.POSTAnonymous(ctx, RefreshTokenPath, model.RefreshRequest{RefreshToken: refreshToken})
	if err != nil {
		return nil, err
	}

	var result model.RefreshResult
	if err := DecodeData(resp, &result); err != nil {
		return nil, fmt.Errorf("refresh rejected: %w", err)
	}
	return &result, nil
}
