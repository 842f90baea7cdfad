// package services implements HTTP clients for Google Drive and for a running driveclone backend
package services

import (
	"context"

	"github.com/desertthunder/driveclone/internal/links"
	"golang.org/x/oauth2"
)

// OAuthService is an OAuth2-backed provider that can sign a user in.
type OAuthService interface {
	Name() string
	AuthURL(state string) string
	Exchange(ctx context.Context, code string) (*oauth2.Token, error)
	SetToken(token *oauth2.Token)
	Authenticated() bool
}

// Drive is the metadata surface the HTTP server and CLI consume.
type Drive interface {
	OAuthService
	links.Resolver
	About(ctx context.Context) (*About, error)
	GetFile(ctx context.Context, fileID string) (*DriveFile, error)
	Revoke(ctx context.Context) error
	Token() (*oauth2.Token, error)
}

var _ Drive = (*DriveService)(nil)
