package mapper

import (
	"net/mail"
	"net/url"
	"regexp"
	"strings"

	"tranquility/internal/response"
)

// require adds a 10002 for every blank value, keyed by its field id.
func require(resp *response.Response, fields ...[2]string) {
	for _, f := range fields {
		if strings.TrimSpace(f[1]) == "" {
			resp.AddMessage(response.MsgMandatoryFieldMissing, response.LevelError, f[0])
		}
	}
}

func field(id, value string) [2]string {
	return [2]string{id, value}
}

func validEmail(s string) bool {
	addr, err := mail.ParseAddress(s)
	return err == nil && addr.Address == strings.TrimSpace(s)
}

func validURL(s string) bool {
	u, err := url.ParseRequestURI(strings.TrimSpace(s))
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

var phonePattern = regexp.MustCompile(`^\+?[0-9 ()\-]+$`)

func validPhone(s string) bool {
	s = strings.TrimSpace(s)
	if !phonePattern.MatchString(s) {
		return false
	}
	digits := 0
	for _, r := range s {
		if r >= '0' && r <= '9' {
			digits++
		}
	}
	return digits >= 6 && digits <= 20
}
