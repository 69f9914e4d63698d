package entity

// User is a recipient (or sender) of notices. Users are owned by the
// surrounding application's account system; this module only reads them.
type User struct {
	ID          int64
	Username    string
	Email       string
	Locale      string // BCP 47 tag, empty means "use the process default"
	SlackUserID string
	IsActive    bool
	IsSuperuser bool
}

// String returns the username, which is how users are shown in logs.
func (u *User) String() string {
	if u == nil {
		return "<nil>"
	}
	return u.Username
}
