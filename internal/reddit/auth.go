package reddit

import (
	"context"
	"net/http"

	"golang.org/x/oauth2"
)

const tokenURL = "https://www.reddit.com/api/v1/access_token"

// passwordTokenSource runs the password grant each time a token is needed.
// Reddit script apps get no refresh token, so this is how tokens are renewed.
type passwordTokenSource struct {
	ctx      context.Context
	conf     *oauth2.Config
	username string
	password string
}

func (s *passwordTokenSource) Token() (*oauth2.Token, error) {
	return s.conf.PasswordCredentialsToken(s.ctx, s.username, s.password)
}

// userAgentTransport sets the User-Agent header Reddit requires on every request.
type userAgentTransport struct {
	userAgent string
	base      http.RoundTripper
}

func (t *userAgentTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.Header.Set("User-Agent", t.userAgent)
	return t.base.RoundTrip(req)
}

func newOAuthClient(ctx context.Context, creds Credentials, tokenEndpoint string) *http.Client {
	plain := &http.Client{Transport: &userAgentTransport{userAgent: creds.UserAgent, base: http.DefaultTransport}}
	ctx = context.WithValue(ctx, oauth2.HTTPClient, plain)

	conf := &oauth2.Config{
		ClientID:     creds.ClientID,
		ClientSecret: creds.ClientSecret,
		Endpoint: oauth2.Endpoint{
			TokenURL:  tokenEndpoint,
			AuthStyle: oauth2.AuthStyleInHeader,
		},
	}

	src := oauth2.ReuseTokenSource(nil, &passwordTokenSource{
		ctx:      ctx,
		conf:     conf,
		username: creds.Username,
		password: creds.Password,
	})
	return oauth2.NewClient(ctx, src)
}
