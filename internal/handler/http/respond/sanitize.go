package respond

import "regexp"

var (
	// userinfo in DSNs and redis URLs; the user part may be empty.
	urlPasswordPattern = regexp.MustCompile(`://([^:/@]*):([^@/]+)@`)

	// Incoming webhook paths carry the token.
	slackWebhookPattern = regexp.MustCompile(`hooks\.slack\.com/services/[A-Za-z0-9/_-]+`)

	// key=value style DSN passwords.
	kvPasswordPattern = regexp.MustCompile(`(?i)(password=)\S+`)
)

// SanitizeError returns err's message with credentials masked.
func SanitizeError(err error) string {
	if err == nil {
		return ""
	}
	return Sanitize(err.Error())
}

// Sanitize masks credentials in msg.
func Sanitize(msg string) string {
	msg = urlPasswordPattern.ReplaceAllString(msg, "://$1:****@")
	msg = slackWebhookPattern.ReplaceAllString(msg, "hooks.slack.com/services/****")
	msg = kvPasswordPattern.ReplaceAllString(msg, "${1}****")
	return msg
}
