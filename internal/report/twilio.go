package report

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const twilioAPI = "https://api.twilio.com"

// TwilioChannel sends WhatsApp messages through the Twilio REST API.
type TwilioChannel struct {
	accountSID string
	authToken  string
	from       string
	baseURL    string
	httpClient *http.Client
}

func NewTwilioChannel(accountSID, authToken, from string) (*TwilioChannel, error) {
	if accountSID == "" || authToken == "" {
		return nil, fmt.Errorf("twilio credentials cannot be empty")
	}
	return &TwilioChannel{
		accountSID: accountSID,
		authToken:  authToken,
		from:       whatsappAddr(from),
		baseURL:    twilioAPI,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}, nil
}

func whatsappAddr(phone string) string {
	if strings.HasPrefix(phone, "whatsapp:") {
		return phone
	}
	return "whatsapp:" + phone
}

type twilioMessage struct {
	SID     string `json:"sid"`
	Status  string `json:"status"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}

func (t *TwilioChannel) SendText(ctx context.Context, to, body string) (Receipt, error) {
	return t.send(ctx, url.Values{"To": {whatsappAddr(to)}, "From": {t.from}, "Body": {body}})
}

func (t *TwilioChannel) SendMedia(ctx context.Context, to, body, mediaURL string) (Receipt, error) {
	return t.send(ctx, url.Values{"To": {whatsappAddr(to)}, "From": {t.from}, "Body": {body}, "MediaUrl": {mediaURL}})
}

func (t *TwilioChannel) send(ctx context.Context, form url.Values) (Receipt, error) {
	endpoint := fmt.Sprintf("%s/2010-04-01/Accounts/%s/Messages.json", t.baseURL, t.accountSID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return Receipt{}, fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(t.accountSID, t.authToken)

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return Receipt{}, fmt.Errorf("error sending request to Twilio: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return Receipt{}, fmt.Errorf("error reading Twilio response: %w", err)
	}
	var msg twilioMessage
	_ = json.Unmarshal(raw, &msg)
	if resp.StatusCode >= 300 {
		if msg.Message != "" {
			return Receipt{}, fmt.Errorf("twilio error %d: %s", msg.Code, msg.Message)
		}
		return Receipt{}, fmt.Errorf("unexpected response status: %s", resp.Status)
	}
	return Receipt{SID: msg.SID, Status: msg.Status}, nil
}
