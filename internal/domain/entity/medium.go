package entity

// DefaultSpamSensitivity applies to a backend configured without one.
const DefaultSpamSensitivity = 2

// Medium identifies one configured delivery channel. ID is the position in
// the registry; Label is the stable key stored in notice settings.
type Medium struct {
	ID              int
	Label           string
	SpamSensitivity int
}

// DefaultSend reports the policy default for a type on this medium: a medium
// receives the type when its sensitivity does not exceed the type threshold.
func (m Medium) DefaultSend(nt *NoticeType) bool {
	return m.SpamSensitivity <= nt.Default
}
