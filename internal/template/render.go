// Package template renders the two-factor code e-mail.
//
// Supported variables:
//
//	{{code}}, {{username}}, {{expires_in}}, {{expires_at}}
package template

import (
	"strings"
	"time"
)

const (
	CodeSubject = "Your sign-in code"

	CodeTextBody = `Hello {{username}},

Your sign-in code is {{code}}.
It expires in {{expires_in}} ({{expires_at}}).

If you did not try to sign in, you can ignore this message.`

	CodeHTMLBody = `<p>Hello {{username}},</p>
<p>Your sign-in code is <strong>{{code}}</strong>.</p>
<p>It expires in {{expires_in}} ({{expires_at}}).</p>
<p>If you did not try to sign in, you can ignore this message.</p>`
)

// CodeData carries the values substituted into the code e-mail.
type CodeData struct {
	Code      string
	Username  string
	ExpiresIn time.Duration
	ExpiresAt time.Time
}

// RenderBody replaces template variables with values from data. Unknown
// variables are left untouched.
func RenderBody(body string, data CodeData) string {
	expiresAt := ""
	if !data.ExpiresAt.IsZero() {
		expiresAt = data.ExpiresAt.UTC().Format(time.RFC3339)
	}
	return strings.NewReplacer(
		"{{code}}", data.Code,
		"{{username}}", data.Username,
		"{{expires_in}}", data.ExpiresIn.String(),
		"{{expires_at}}", expiresAt,
	).Replace(body)
}
