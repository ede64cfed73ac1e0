package google

import (
	"github.com/pysugar/drivesweep/internal/config"
	"golang.org/x/oauth2"
	googleOAuth "golang.org/x/oauth2/google"
	drivev3 "google.golang.org/api/drive/v3"
	oauth2api "google.golang.org/api/oauth2/v2"
)

// Scopes required to list, delete, trash and unshare Drive files, plus the identity claims.
var Scopes = []string{
	drivev3.DriveScope,
	oauth2api.UserinfoEmailScope,
	oauth2api.UserinfoProfileScope,
}

// NewOAuthConfig returns the OAuth2 config for Google authentication.
func NewOAuthConfig(cfg config.GoogleConfig) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		RedirectURL:  cfg.RedirectURL,
		Scopes:       Scopes,
		Endpoint:     googleOAuth.Endpoint,
	}
}
