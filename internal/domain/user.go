package domain

// AuthUser is the identity Supabase resolves for a bearer token.
type AuthUser struct {
	ID           string `json:"id"`
	Email        string `json:"email"`
	UserMetadata JSONB  `json:"user_metadata,omitempty"`
}

// AuthSession is a token pair minted by the auth provider.
type AuthSession struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
	TokenType    string `json:"token_type"`
}
