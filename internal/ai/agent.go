package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"invoice-app/internal/core"

	"github.com/invopop/jsonschema"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/param"
	"github.com/openai/openai-go/responses"
	"github.com/openai/openai-go/shared"
	"github.com/openai/openai-go/shared/constant"
)

// AgentService turns free-text billing descriptions into structured invoice drafts.
type AgentService interface {
	DraftInvoice(ctx context.Context, naturalLanguage string) (*core.InvoiceDraft, error)
}

type Agent struct {
	client *openai.Client
}

func NewAgent(apiKey string) *Agent {
	client := openai.NewClient(option.WithAPIKey(apiKey))
	return &Agent{client: &client}
}

// DraftInvoice extracts an invoice draft from a natural-language description
// such as "bill Acme for 3 days of consulting at 400/day plus 15% tax".
// The draft is advisory: it still goes through normal invoice validation
// when the caller submits it.
func (a *Agent) DraftInvoice(ctx context.Context, naturalLanguage string) (*core.InvoiceDraft, error) {
	prompt := fmt.Sprintf(`You are a billing assistant.
Your goal is to read a free-text description of work or goods to be billed and extract a structured invoice draft.
Rules:
1. Every amount must be a decimal string (e.g. "400.00"), never a number.
2. Quantities must be positive; unit prices must not be negative.
3. Use a tax rate of "0" for any line where no tax is mentioned.
4. Set tax_inclusive to true only if the text says prices already include tax.
5. Today's date is %s.

Text: %s`, time.Now().Format("2006-01-02"), naturalLanguage)

	// Dynamically generate the JSON schema from the Go struct
	schemaStruct := generateSchema()
	schemaJSON, err := json.Marshal(schemaStruct)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal schema: %w", err)
	}
	var schemaMap map[string]any
	if err := json.Unmarshal(schemaJSON, &schemaMap); err != nil {
		return nil, fmt.Errorf("failed to unmarshal schema to map: %w", err)
	}

	params := responses.ResponseNewParams{
		Model: shared.ResponsesModel(shared.ChatModelGPT4o),
		Input: responses.ResponseNewParamsInputUnion{
			OfString: param.NewOpt(prompt),
		},
		Text: responses.ResponseTextConfigParam{
			Format: responses.ResponseFormatTextConfigUnionParam{
				OfJSONSchema: &responses.ResponseFormatTextJSONSchemaConfigParam{
					Type:        constant.JSONSchema("json_schema"),
					Name:        "invoice_draft",
					Strict:      param.NewOpt(true),
					Schema:      schemaMap,
					Description: param.NewOpt("A draft invoice extracted from a free-text billing description"),
				},
			},
		},
	}

	resp, err := a.client.Responses.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("openai responses error: %w", err)
	}

	content := resp.OutputText()
	if content == "" {
		return nil, fmt.Errorf("empty response content")
	}

	var draft core.InvoiceDraft
	if err := json.Unmarshal([]byte(content), &draft); err != nil {
		return nil, fmt.Errorf("failed to parse completion: %w", err)
	}

	if len(draft.Lines) == 0 {
		return nil, fmt.Errorf("no billable lines found in the text")
	}

	return &draft, nil
}

func generateSchema() interface{} {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	var v core.InvoiceDraft
	return reflector.Reflect(v)
}
