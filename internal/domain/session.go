package domain

// Session holds the client-side view of an authenticated login. The access
// token decides whether a login is considered active; the user profile may
// lag behind until fetched.
type Session struct {
	AccessToken  string
	RefreshToken string
	User         *User
}

func (s Session) Authenticated() bool {
	return s.AccessToken != ""
}

// HasCredentials reports whether any token survives, which is what decides
// between a login redirect and a plain reload when a session dies.
func (s Session) HasCredentials() bool {
	return s.AccessToken != "" || s.RefreshToken != ""
}
