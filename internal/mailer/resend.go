package mailer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"io"
	"net/http"
	"time"
)

var signInTemplate = template.Must(template.New("signin").Parse(`
<p>Sign in to Fyra</p>
<p>Open the link below on this device to finish signing in:</p>
<p><a href="{{.Link}}">Sign in</a></p>
<p>If you did not request this email you can ignore it.</p>
`))

// ResendMailer sends mail through the Resend REST API.
type ResendMailer struct {
	apiKey  string
	from    string
	client  *http.Client
	baseURL string
}

func NewResendMailer(apiKey, from, baseURL string) (*ResendMailer, error) {
	if apiKey == "" {
		return nil, errors.New("resend api key not set")
	}
	if baseURL == "" {
		baseURL = "https://api.resend.com"
	}
	return &ResendMailer{
		apiKey: apiKey,
		from:   from,
		client: &http.Client{
			Timeout: 5 * time.Second,
		},
		baseURL: baseURL,
	}, nil
}

type sendRequest struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
}

func (m *ResendMailer) SendSignInLink(ctx context.Context, toEmail, link string) error {
	var html bytes.Buffer
	if err := signInTemplate.Execute(&html, struct{ Link string }{Link: link}); err != nil {
		return fmt.Errorf("render sign-in mail: %w", err)
	}

	body, err := json.Marshal(sendRequest{
		From:    m.from,
		To:      []string{toEmail},
		Subject: "Your Fyra sign-in link",
		HTML:    html.String(),
	})
	if err != nil {
		return fmt.Errorf("encode sign-in mail: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.baseURL+"/emails", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build resend request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+m.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.client.Do(req)
	if err != nil {
		return fmt.Errorf("resend request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("failed to send sign-in email: status %d: %s", resp.StatusCode, bytes.TrimSpace(msg))
	}
	return nil
}
