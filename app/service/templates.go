package service

import "strings"

const (
	confirmationEmailSubject = "Confirm your email"
	recoverPassEmailSubject  = "Recover your password"
)

const confirmationEmailHTML = `<html>
  <body style="font-family: sans-serif; color: #333;">
    <h2>Hello, {{name}}!</h2>
    <p>Use the code below to confirm your email address:</p>
    <p style="font-size: 28px; font-weight: bold; letter-spacing: 6px;">{{code}}</p>
    <p>If you did not create this account, you can ignore this message.</p>
  </body>
</html>`

const recoverPassEmailHTML = `<html>
  <body style="font-family: sans-serif; color: #333;">
    <h2>Password recovery</h2>
    <p>Click the link below to choose a new password:</p>
    <p><a href="{{url}}">{{url}}</a></p>
    <p>If you did not request this, you can ignore this message.</p>
  </body>
</html>`

func renderConfirmationEmail(name, code string) string {
	return strings.NewReplacer("{{name}}", name, "{{code}}", code).Replace(confirmationEmailHTML)
}

func renderRecoverPassEmail(url string) string {
	return strings.NewReplacer("{{url}}", url).Replace(recoverPassEmailHTML)
}
