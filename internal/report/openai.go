package report

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const openAISpeechURL = "https://api.openai.com/v1/audio/speech"

// OpenAITTS synthesizes speech with the OpenAI audio API.
type OpenAITTS struct {
	apiKey     string
	model      string
	voice      string
	endpoint   string
	httpClient *http.Client
}

func NewOpenAITTS(apiKey, model, voice string) (*OpenAITTS, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("openai api key cannot be empty")
	}
	return &OpenAITTS{
		apiKey:     apiKey,
		model:      model,
		voice:      voice,
		endpoint:   openAISpeechURL,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}, nil
}

type speechRequest struct {
	Model          string `json:"model"`
	Voice          string `json:"voice"`
	Input          string `json:"input"`
	ResponseFormat string `json:"response_format"`
}

func (o *OpenAITTS) Synthesize(ctx context.Context, text string) ([]byte, error) {
	payload, err := json.Marshal(speechRequest{Model: o.model, Voice: o.voice, Input: text, ResponseFormat: "mp3"})
	if err != nil {
		return nil, fmt.Errorf("error marshaling speech request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+o.apiKey)

	resp, err := o.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error sending request to OpenAI: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("error reading speech response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected response status: %s: %s", resp.Status, truncate(body, 200))
	}
	if len(body) == 0 {
		return nil, fmt.Errorf("empty audio returned")
	}
	return body, nil
}

func truncate(b []byte, n int) string {
	if len(b) > n {
		return string(b[:n]) + "..."
	}
	return string(b)
}
