package report

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/ANIKETSHETTY47/solar-exec-dashboard/internal/domain"
)

// RenderRequest is the document model sent to a PDF rendering service.
type RenderRequest struct {
	Plant    *domain.PlantData            `json:"planta"`
	Snapshot *domain.ExecutiveKPISnapshot `json:"kpis"`
	Period   string                       `json:"periodo"`
}

func NewRenderRequest(plant *domain.PlantData, snap *domain.ExecutiveKPISnapshot) RenderRequest {
	return RenderRequest{Plant: plant, Snapshot: snap, Period: snap.Range.Label()}
}

// HTTPRenderer posts the document model to a rendering service that
// answers with application/pdf.
type HTTPRenderer struct {
	url        string
	httpClient *http.Client
}

func NewHTTPRenderer(url string) (*HTTPRenderer, error) {
	if url == "" {
		return nil, fmt.Errorf("renderer URL cannot be empty")
	}
	return &HTTPRenderer{url: url, httpClient: &http.Client{Timeout: 60 * time.Second}}, nil
}

func (h *HTTPRenderer) Render(ctx context.Context, plant *domain.PlantData, snap *domain.ExecutiveKPISnapshot) ([]byte, error) {
	payload, err := json.Marshal(NewRenderRequest(plant, snap))
	if err != nil {
		return nil, fmt.Errorf("error marshaling render request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/pdf")

	resp, err := h.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error sending request to renderer: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("error reading renderer response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected response status: %s", resp.Status)
	}
	return body, nil
}
