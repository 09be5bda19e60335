package services

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/gomail.v2"
)

// MailService sends signin code emails over SMTP.
type MailService struct{}

func NewMailService() *MailService {
	return &MailService{}
}

// SendSigninCode delivers the OTP to the user's email. Intended to be
// called from a goroutine; the login flow never waits on delivery.
func (s *MailService) SendSigninCode(email, code string) error {
	smtpHost := os.Getenv("SMTP_HOST")
	smtpPortStr := os.Getenv("SMTP_PORT")
	smtpUser := os.Getenv("SMTP_USER")
	smtpPass := os.Getenv("SMTP_PASS")
	fromEmail := os.Getenv("FROM_EMAIL")

	if smtpHost == "" || smtpPortStr == "" || smtpUser == "" || smtpPass == "" || fromEmail == "" {
		return fmt.Errorf("missing SMTP configuration")
	}

	smtpPort, err := strconv.Atoi(smtpPortStr)
	if err != nil {
		return fmt.Errorf("invalid SMTP port: %v", err)
	}

	subject := "Your signin code"
	body := fmt.Sprintf(`
		<html>
		<body>
			<h2>Confirm your signin</h2>
			<p>Use the following code to finish signing in:</p>
			<h3 style="background-color: #f0f0f0; padding: 10px; font-size: 24px; letter-spacing: 5px; text-align: center;">%s</h3>
			<p>This code will expire in 2 minutes.</p>
			<p>If you did not try to sign in, please ignore this email or contact support if you have concerns.</p>
			<p>Thank you,<br>The Veridian Team</p>
		</body>
		</html>
	`, code)

	m := gomail.NewMessage()
	m.SetHeader("From", fromEmail)
	m.SetHeader("To", email)
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", body)

	d := gomail.NewDialer(smtpHost, smtpPort, smtpUser, smtpPass)

	if err := d.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send email: %v", err)
	}

	return nil
}
