package auth

// UserIdentity adapts a User into the Identity interface.
type UserIdentity struct {
	user *User
}

var _ Identity = UserIdentity{}

// NewIdentityFromUser returns an Identity adapter for the provided user.
func NewIdentityFromUser(user *User) Identity {
	if user == nil {
		return nil
	}
	return UserIdentity{user: user}
}

// ID returns the user's subject key.
func (u UserIdentity) ID() SubjectKey {
	if u.user == nil {
		return 0
	}
	return u.user.Subject()
}

// Username returns the user's username.
func (u UserIdentity) Username() string {
	if u.user == nil {
		return ""
	}
	return u.user.Username
}

// Email returns the user's email address.
func (u UserIdentity) Email() string {
	if u.user == nil {
		return ""
	}
	return u.user.Email
}

// User returns the underlying record
func (u UserIdentity) User() *User {
	return u.user
}
