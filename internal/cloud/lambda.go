package cloud

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/lambda"
	"github.com/aws/aws-sdk-go-v2/service/lambda/types"

	"github.com/ANIKETSHETTY47/solar-exec-dashboard/internal/domain"
	"github.com/ANIKETSHETTY47/solar-exec-dashboard/internal/report"
)

// LambdaClient renders report PDFs with a Lambda function.
type LambdaClient struct {
	svc      *lambda.Client
	function string
}

// NewLambdaClient creates a new Lambda client instance
func NewLambdaClient(ctx context.Context, region, function string) (*LambdaClient, error) {
	if function == "" {
		return nil, fmt.Errorf("renderer function name cannot be empty")
	}
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("unable to load SDK config: %w", err)
	}

	return &LambdaClient{
		svc:      lambda.NewFromConfig(cfg),
		function: function,
	}, nil
}

// renderResponse is the payload returned by the renderer function.
type renderResponse struct {
	PDFBase64 string `json:"pdf_base64"`
	Error     string `json:"error"`
}

// Render invokes the renderer synchronously and decodes the returned PDF.
func (c *LambdaClient) Render(ctx context.Context, plant *domain.PlantData, snap *domain.ExecutiveKPISnapshot) ([]byte, error) {
	payload, err := json.Marshal(report.NewRenderRequest(plant, snap))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}

	result, err := c.svc.Invoke(ctx, &lambda.InvokeInput{
		FunctionName:   aws.String(c.function),
		Payload:        payload,
		InvocationType: types.InvocationTypeRequestResponse,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to invoke Lambda: %w", err)
	}

	if result.FunctionError != nil {
		return nil, fmt.Errorf("Lambda function error: %s", aws.ToString(result.FunctionError))
	}
	return decodeRenderResponse(result.Payload)
}

func decodeRenderResponse(raw []byte) ([]byte, error) {
	var resp renderResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}
	if resp.Error != "" {
		return nil, fmt.Errorf("renderer error: %s", resp.Error)
	}
	pdf, err := base64.StdEncoding.DecodeString(resp.PDFBase64)
	if err != nil {
		return nil, fmt.Errorf("failed to decode PDF: %w", err)
	}
	return pdf, nil
}
