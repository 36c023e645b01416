// Package signal provides close/trade recommendations for positions,
// preferring the prediction oracle and falling back to a deterministic
// rule set when it is unavailable.
package signal

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"

	"papertrader/internal/errors"
	"papertrader/internal/models"
)

// PositionSnapshot is the view of an open position handed to the oracle.
type PositionSnapshot struct {
	Symbol            string
	Side              models.Side
	EntryPrice        float64
	CurrentPrice      float64
	PriceChangePct    float64
	UnrealizedPnLPct  float64
	ConfidenceAtEntry float64
	AgeHours          float64
}

// MarketSnapshot is the technical view of a symbol handed to the oracle
// for a market prediction.
type MarketSnapshot struct {
	Symbol       string
	CurrentPrice float64
	RSI          float64
	MACD         float64
	PriceVsSMA20 float64
	PriceVsSMA50 float64
}

// Oracle is the external predictive signal provider. Calls are
// time-bounded by the caller; failures are recovered locally and never
// surfaced further.
type Oracle interface {
	// RecommendClose answers whether an open position should be closed.
	RecommendClose(ctx context.Context, snap PositionSnapshot) (models.CloseSignal, error)
	// PredictMarket answers a buy/sell/hold recommendation for a symbol.
	PredictMarket(ctx context.Context, snap MarketSnapshot) (models.Prediction, error)
}

// OpenAIOracle implements Oracle using the OpenAI chat completion API.
type OpenAIOracle struct {
	client *openai.Client
	model  string
}

// NewOpenAIOracle creates a new OpenAI-backed oracle.
func NewOpenAIOracle(apiKey, model string) *OpenAIOracle {
	return &OpenAIOracle{
		client: openai.NewClient(apiKey),
		model:  model,
	}
}

const closeSystemPrompt = `You are an expert AI trading analyst specializing in position management and exit timing. Analyze open positions and provide optimal close recommendations based on market conditions.`

const predictSystemPrompt = `You are an expert AI trading analyst. Analyze technical indicators and provide trading recommendations with confidence levels.`

// RecommendClose asks the model for a close recommendation and parses
// its structured JSON answer.
func (o *OpenAIOracle) RecommendClose(ctx context.Context, snap PositionSnapshot) (models.CloseSignal, error) {
	var sb strings.Builder
	sb.WriteString("Analyze the following open trade position and provide a close recommendation:\n\n")
	sb.WriteString("Trade Details:\n")
	sb.WriteString(fmt.Sprintf("- Symbol: %s\n", snap.Symbol))
	sb.WriteString(fmt.Sprintf("- Type: %s\n", snap.Side))
	sb.WriteString(fmt.Sprintf("- Entry Price: $%.2f\n", snap.EntryPrice))
	sb.WriteString(fmt.Sprintf("- Current Price: $%.2f\n", snap.CurrentPrice))
	sb.WriteString(fmt.Sprintf("- Price Change: %.2f%%\n", snap.PriceChangePct))
	sb.WriteString(fmt.Sprintf("- Unrealized P&L: %.2f%%\n", snap.UnrealizedPnLPct))
	sb.WriteString(fmt.Sprintf("- Confidence at Entry: %.0f%%\n", snap.ConfidenceAtEntry))
	sb.WriteString(fmt.Sprintf("- Trade Duration: %.0f hours\n\n", snap.AgeHours))
	sb.WriteString(`Based on market patterns, provide:
1. Close recommendation (true/false)
2. Confidence level (0-100%)
3. Brief reasoning
4. Expected additional price movement in percentage if held

Consider profit-taking opportunities, risk reversal signals, momentum exhaustion, and time-based decay of edge.

Format your response as JSON:
{
  "should_close": true,
  "confidence": 85,
  "reasoning": "Technical indicators suggest...",
  "expected_move": 1.5
}`)

	response, err := o.complete(ctx, closeSystemPrompt, sb.String())
	if err != nil {
		return models.CloseSignal{}, err
	}

	var sig models.CloseSignal
	if err := json.Unmarshal([]byte(extractJSON(response)), &sig); err != nil {
		return models.CloseSignal{}, errors.NewOracleError("recommend_close", fmt.Errorf("unparsable response: %w", err))
	}
	if sig.Confidence < 0 || sig.Confidence > 100 {
		return models.CloseSignal{}, errors.NewOracleError("recommend_close", fmt.Errorf("confidence out of range: %f", sig.Confidence))
	}
	return sig, nil
}

// PredictMarket asks the model for a buy/sell/hold recommendation based
// on technical indicators.
func (o *OpenAIOracle) PredictMarket(ctx context.Context, snap MarketSnapshot) (models.Prediction, error) {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Analyze the following trading data for %s and provide a trading recommendation:\n\n", snap.Symbol))
	sb.WriteString(fmt.Sprintf("Current Price: $%.2f\n", snap.CurrentPrice))
	sb.WriteString(fmt.Sprintf("RSI (14): %.2f\n", snap.RSI))
	sb.WriteString(fmt.Sprintf("MACD: %.2f\n", snap.MACD))
	sb.WriteString(fmt.Sprintf("Price vs SMA20: $%.2f\n", snap.PriceVsSMA20))
	sb.WriteString(fmt.Sprintf("Price vs SMA50: $%.2f\n\n", snap.PriceVsSMA50))
	sb.WriteString(`Based on technical analysis and market patterns, provide:
1. Trading signal (buy, sell, or hold)
2. Confidence level (0-100%)
3. Brief reasoning
4. Expected price movement in percentage

Format your response as JSON:
{
  "prediction": "buy|sell|hold",
  "confidence": 85,
  "reasoning": "Technical indicators suggest...",
  "expected_move": 2.5
}`)

	response, err := o.complete(ctx, predictSystemPrompt, sb.String())
	if err != nil {
		return models.Prediction{}, err
	}

	var pred models.Prediction
	if err := json.Unmarshal([]byte(extractJSON(response)), &pred); err != nil {
		return models.Prediction{}, errors.NewOracleError("predict_market", fmt.Errorf("unparsable response: %w", err))
	}
	switch pred.Action {
	case "buy", "sell", "hold":
	default:
		return models.Prediction{}, errors.NewOracleError("predict_market", fmt.Errorf("unknown action: %q", pred.Action))
	}
	return pred, nil
}

func (o *OpenAIOracle) complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       o.model,
		Temperature: 0.3,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: userPrompt},
		},
	})
	if err != nil {
		return "", errors.NewOracleError("completion", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.NewOracleError("completion", errors.ErrOracleUnavailable)
	}
	return resp.Choices[0].Message.Content, nil
}

// extractJSON strips markdown code fences around a JSON object, which
// chat models frequently add despite instructions.
func extractJSON(response string) string {
	response = strings.TrimSpace(response)
	if start := strings.Index(response, "{"); start >= 0 {
		if end := strings.LastIndex(response, "}"); end > start {
			return response[start : end+1]
		}
	}
	return response
}
