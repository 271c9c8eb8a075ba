// ABOUTME: Credential providers for the Strava gateway.
// ABOUTME: Wraps golang.org/x/oauth2 static and refreshing token sources.
package strava

import (
	"context"

	"golang.org/x/oauth2"
)

// DefaultTokenURL is Strava's OAuth token endpoint.
const DefaultTokenURL = "https://www.strava.com/oauth/token"

// StaticTokenSource returns a source that always yields the given access token.
func StaticTokenSource(accessToken string) oauth2.TokenSource {
	return oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken, TokenType: "Bearer"})
}

// RefreshTokenSource returns a source that exchanges a refresh token for access
// tokens as they expire. The returned source caches tokens until expiry.
func RefreshTokenSource(ctx context.Context, clientID, clientSecret, refreshToken, tokenURL string) oauth2.TokenSource {
	if tokenURL == "" {
		tokenURL = DefaultTokenURL
	}
	conf := &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		Endpoint: oauth2.Endpoint{
			TokenURL:  tokenURL,
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}
	return conf.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken})
}
