package mail

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"math"
	"time"
)

const OTPSubject = "Your One-Time Password (OTP)"

var otpHTML = template.Must(template.New("otp").Parse(`<!DOCTYPE html>
<html>
  <body style="font-family: Arial, sans-serif; color: #222;">
    <h2>{{.Site}}</h2>
    <p>Use the following code to sign in:</p>
    <p style="font-size: 28px; font-weight: bold; letter-spacing: 6px;">{{.Code}}</p>
    <p>It will expire in {{.Minutes}} minutes.</p>
    <p style="color: #888; font-size: 12px;">If you did not request this code you can ignore this email.</p>
  </body>
</html>
`))

// OTPMailer renders and sends OTP emails.
type OTPMailer struct {
	sender Sender
	site   string
}

func NewOTPMailer(sender Sender, site string) *OTPMailer {
	return &OTPMailer{sender: sender, site: site}
}

// OTPMessage renders the email carrying code, valid for validity.
func OTPMessage(site, to, code string, validity time.Duration) (Message, error) {
	minutes := int(math.Ceil(validity.Minutes()))

	var buf bytes.Buffer
	err := otpHTML.Execute(&buf, struct {
		Site    string
		Code    string
		Minutes int
	}{site, code, minutes})
	if err != nil {
		return Message{}, fmt.Errorf("render otp email: %w", err)
	}

	return Message{
		To:      to,
		Subject: OTPSubject,
		Text:    fmt.Sprintf("Your OTP code is: %s. It will expire in %d minutes.", code, minutes),
		HTML:    buf.String(),
	}, nil
}

func (m *OTPMailer) SendOTP(ctx context.Context, to, code string, validity time.Duration) error {
	msg, err := OTPMessage(m.site, to, code, validity)
	if err != nil {
		return err
	}
	return m.sender.Send(ctx, msg)
}
