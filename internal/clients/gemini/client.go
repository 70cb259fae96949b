// Package gemini generates short chart commentary with the Gemini API.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aristath/trendtrack/internal/domain"
	"github.com/aristath/trendtrack/pkg/formulas"
	"github.com/rs/zerolog"
	"google.golang.org/genai"
)

// trendWindow is the short moving average quoted in the prompt.
const trendWindow = 5

// User-facing outcomes that do not come from the model.
const (
	NoAnalysisText    = "No analysis could be generated at this time."
	AnalysisFailedMsg = "Failed to generate AI analysis. Please check your API key and try again."
)

// AnalysisRequest is the input for one analysis call.
type AnalysisRequest struct {
	Symbol  string
	Quote   domain.Quote
	History []domain.StockDataPoint
	APIKey  string
	Model   string
}

// generateFunc sends a prompt to the model and returns its text.
type generateFunc func(ctx context.Context, apiKey, model, prompt string) (string, error)

// Client wraps the Gemini SDK
type Client struct {
	generate generateFunc
	log      zerolog.Logger
}

// NewClient creates a new Gemini analysis client
func NewClient(log zerolog.Logger) *Client {
	return &Client{
		generate: generateWithSDK,
		log:      log.With().Str("client", "gemini").Logger(),
	}
}

// Analyze returns a 2-3 sentence technical summary for the request.
func (c *Client) Analyze(ctx context.Context, req AnalysisRequest) (string, error) {
	const op = "gemini.analyze"
	if req.APIKey == "" {
		return "", domain.NewConfigurationError(op, "Gemini API key is not set")
	}
	model := req.Model
	if model == "" {
		model = domain.DefaultGeminiModel
	}

	text, err := c.generate(ctx, req.APIKey, model, BuildPrompt(req.Symbol, req.Quote, req.History))
	if err != nil {
		c.log.Error().Err(err).Str("symbol", req.Symbol).Str("model", model).Msg("Analysis request failed")
		return "", &domain.Error{Kind: domain.KindUpstream, Op: op, Err: errors.New(AnalysisFailedMsg)}
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return NoAnalysisText, nil
	}
	return text, nil
}

// BuildPrompt renders the analysis prompt from the quote and recent closes.
func BuildPrompt(symbol string, quote domain.Quote, history []domain.StockDataPoint) string {
	lines := make([]string, len(history))
	prices := make([]float64, len(history))
	for i, p := range history {
		lines[i] = fmt.Sprintf("%s: $%.2f", p.Date, p.Price)
		prices[i] = p.Price
	}

	sign := ""
	if quote.Change > 0 {
		sign = "+"
	}

	var b strings.Builder
	b.WriteString("You are a strict, concise financial charting assistant.\n")
	fmt.Fprintf(&b, "Analyze the following recent price data for %s.\n", symbol)
	fmt.Fprintf(&b, "Current Price: $%g\n", quote.CurrentPrice)
	fmt.Fprintf(&b, "Today's Change: %s%g (%g%%)\n", sign, quote.Change, quote.ChangePercent)
	b.WriteString("Recent Closing Prices:\n")
	b.WriteString(strings.Join(lines, "\n"))
	b.WriteString("\n")

	if len(prices) > 0 {
		fmt.Fprintf(&b, "Average close: $%.2f\n", formulas.Mean(prices))
	}
	if sma := formulas.LastSMA(prices, trendWindow); sma != nil {
		fmt.Fprintf(&b, "%d-session moving average: $%.2f\n", trendWindow, *sma)
	}
	if m := formulas.CalculateMomentum(prices); m.Samples >= 2 {
		fmt.Fprintf(&b, "Window change: %.2f%%, volatility of returns: %.2f%% over %d samples\n", m.ChangePct, m.VolatilityPct, m.Samples)
	}

	b.WriteString("\nProvide a 2-3 sentence technical analysis summary. Do not give financial advice. ")
	b.WriteString("Focus on trend direction, momentum, and recent price action relative to the given history.")
	return b.String()
}

func generateWithSDK(ctx context.Context, apiKey, model, prompt string) (string, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return "", fmt.Errorf("failed to create gemini client: %w", err)
	}

	resp, err := client.Models.GenerateContent(ctx, model, genai.Text(prompt), nil)
	if err != nil {
		return "", fmt.Errorf("failed to generate content: %w", err)
	}

	return resp.Text(), nil
}
