package repository

import (
	"context"

	"media-ops/domain/model"
)

// IOAuthToken persists platform credentials so a refresh is not repeated
// needlessly across restarts.
type IOAuthToken interface {
	UpsertToken(ctx context.Context, t *model.OAuthToken) error
	GetToken(ctx context.Context, accountID, platform string) (*model.OAuthToken, error)
}
