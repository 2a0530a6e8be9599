package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/invopop/jsonschema"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/param"
	"github.com/openai/openai-go/responses"
	"github.com/openai/openai-go/shared"
	"github.com/openai/openai-go/shared/constant"
)

// PaymentInterpreter turns a free-text collection note into a PaymentProposal.
type PaymentInterpreter interface {
	InterpretPayment(ctx context.Context, note string, openCredits []CreditHint, today time.Time) (*PaymentProposal, error)
}

// CreditHint is one open credit offered to the model as a candidate match.
type CreditHint struct {
	CreditNumber      string
	CustomerName      string
	InstallmentAmount string
	RemainingBalance  string
}

type Agent struct {
	client *openai.Client
	model  shared.ResponsesModel
}

// NewAgent builds an Agent for the given model; an empty model uses GPT-4o.
func NewAgent(apiKey, model string) *Agent {
	client := openai.NewClient(option.WithAPIKey(apiKey))
	m := shared.ResponsesModel(shared.ChatModelGPT4o)
	if model != "" {
		m = shared.ResponsesModel(model)
	}
	return &Agent{client: &client, model: m}
}

func (a *Agent) InterpretPayment(ctx context.Context, note string, openCredits []CreditHint, today time.Time) (*PaymentProposal, error) {
	prompt := BuildPaymentPrompt(note, openCredits, today)

	schemaJSON, err := json.Marshal(generateSchema())
	if err != nil {
		return nil, fmt.Errorf("failed to marshal schema: %w", err)
	}
	var schemaMap map[string]any
	if err := json.Unmarshal(schemaJSON, &schemaMap); err != nil {
		return nil, fmt.Errorf("failed to unmarshal schema to map: %w", err)
	}

	params := responses.ResponseNewParams{
		Model: a.model,
		Input: responses.ResponseNewParamsInputUnion{
			OfString: param.NewOpt(prompt),
		},
		Text: responses.ResponseTextConfigParam{
			Format: responses.ResponseFormatTextConfigUnionParam{
				OfJSONSchema: &responses.ResponseFormatTextJSONSchemaConfigParam{
					Type:        constant.JSONSchema("json_schema"),
					Name:        "payment_proposal",
					Strict:      param.NewOpt(true),
					Schema:      schemaMap,
					Description: param.NewOpt("A payment against one open installment credit"),
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
	return ParseProposal(content)
}

// ParseProposal decodes, normalizes and validates the model's JSON output.
func ParseProposal(content string) (*PaymentProposal, error) {
	var proposal PaymentProposal
	if err := json.Unmarshal([]byte(content), &proposal); err != nil {
		return nil, fmt.Errorf("failed to parse completion: %w", err)
	}
	proposal.Normalize()
	if err := proposal.Validate(); err != nil {
		return nil, fmt.Errorf("proposal validation failed: %w", err)
	}
	return &proposal, nil
}

// BuildPaymentPrompt renders the instructions, today's date and the open credits.
func BuildPaymentPrompt(note string, openCredits []CreditHint, today time.Time) string {
	var b strings.Builder
	for _, c := range openCredits {
		fmt.Fprintf(&b, "- %s | %s | installment %s | remaining %s\n",
			c.CreditNumber, c.CustomerName, c.InstallmentAmount, c.RemainingBalance)
	}
	credits := b.String()
	if credits == "" {
		credits = "(none)\n"
	}

	return fmt.Sprintf(`You help a field collector record payments on installment credits.
Read the collector's note and propose exactly one payment.
Rules:
1. credit_number MUST be one of the open credits listed below.
2. If the note names a customer with several open credits and does not say which, ask.
3. If the amount is missing, ask. Never guess an amount.
4. amount is a string with two decimals and may not exceed the remaining balance.
5. method defaults to CASH when the note does not say.
6. paid_on is YYYY-MM-DD; resolve words like "yesterday" against today's date.
7. Provide a confidence score (0.0-1.0) and explain your reasoning.

Today: %s

Open credits (number | customer | installment | remaining):
%s
Note: %s`, today.Format("2006-01-02"), credits, note)
}

func generateSchema() interface{} {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	var v PaymentProposal
	return reflector.Reflect(v)
}
