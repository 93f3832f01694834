package repository

import (
	"context"

	"golang.org/x/oauth2"
)

// ICredentials hands out platform tokens guaranteed not to be within the
// expiry safety margin, refreshing transparently when possible.
type ICredentials interface {
	// Token returns a usable token or *model.AuthRequiredError when no
	// refreshable credential exists.
	Token(ctx context.Context) (*oauth2.Token, error)
	// Invalidate forces the next Token call to refresh. Used after an
	// auth rejection from the platform mid-transfer.
	Invalidate()
	AuthURL(state string) string
}
