package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// BuiltinConfig controls the builtin tool suite. With an empty APIBaseURL the
// weather and customer tools answer locally and deterministically; otherwise
// they call the mock SaaS API.
type BuiltinConfig struct {
	APIBaseURL string
	HTTPClient *http.Client
}

// WeatherArgs are the arguments for get_weather.
type WeatherArgs struct {
	Location string `json:"location"`
	Units    string `json:"units,omitempty"`
}

// CustomerArgs are the arguments for get_customer.
type CustomerArgs struct {
	CustomerID string `json:"customer_id"`
}

// SummarizeArgs are the arguments for summarize_text.
type SummarizeArgs struct {
	Text      string `json:"text"`
	MaxLength int    `json:"max_length,omitempty"`
}

// CalculateArgs are the arguments for calculate.
type CalculateArgs struct {
	Expression string `json:"expression"`
}

// RegisterBuiltins registers the four harness tools.
func RegisterBuiltins(r *Registry, cfg BuiltinConfig) {
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Second}
	}

	r.MustRegister("get_weather", func(ctx context.Context, args json.RawMessage) (json.RawMessage, error) {
		var in WeatherArgs
		if len(args) > 0 {
			if err := json.Unmarshal(args, &in); err != nil {
				return nil, fmt.Errorf("invalid weather arguments: %w", err)
			}
		}
		if in.Location == "" {
			in.Location = "London"
		}
		if in.Units == "" {
			in.Units = "celsius"
		}
		if cfg.APIBaseURL == "" {
			return json.Marshal(map[string]interface{}{
				"location":    in.Location,
				"temperature": 18.0,
				"conditions":  "partly cloudy",
				"humidity":    60,
			})
		}
		return postJSON(ctx, client, cfg.APIBaseURL+"/api/weather", in, "weather")
	})

	r.MustRegister("get_customer", func(ctx context.Context, args json.RawMessage) (json.RawMessage, error) {
		var in CustomerArgs
		if len(args) > 0 {
			if err := json.Unmarshal(args, &in); err != nil {
				return nil, fmt.Errorf("invalid customer arguments: %w", err)
			}
		}
		if cfg.APIBaseURL != "" {
			return postJSON(ctx, client, cfg.APIBaseURL+"/api/customer", in, "customer")
		}
		if !isNumeric(in.CustomerID) {
			return nil, fmt.Errorf("customer %s not found", in.CustomerID)
		}
		return json.Marshal(map[string]interface{}{
			"customer_id":  in.CustomerID,
			"name":         "Jamie Example",
			"email":        fmt.Sprintf("customer%s@example.com", in.CustomerID),
			"status":       "active",
			"total_orders": 3,
		})
	})

	r.MustRegister("summarize_text", func(ctx context.Context, args json.RawMessage) (json.RawMessage, error) {
		var in SummarizeArgs
		if len(args) > 0 {
			if err := json.Unmarshal(args, &in); err != nil {
				return nil, fmt.Errorf("invalid summarize arguments: %w", err)
			}
		}
		text := strings.TrimSpace(in.Text)
		if len(text) < 20 {
			return nil, fmt.Errorf("text too short to summarize")
		}
		maxWords := in.MaxLength
		if maxWords <= 0 {
			maxWords = 100
		}
		words := strings.Fields(text)
		if len(words) > maxWords {
			words = words[:maxWords]
		}
		return json.Marshal(map[string]string{"summary": strings.Join(words, " ")})
	})

	r.MustRegister("calculate", func(ctx context.Context, args json.RawMessage) (json.RawMessage, error) {
		var in CalculateArgs
		if len(args) > 0 {
			if err := json.Unmarshal(args, &in); err != nil {
				return nil, fmt.Errorf("invalid calculate arguments: %w", err)
			}
		}
		result, err := evalExpression(in.Expression)
		if err != nil {
			return nil, err
		}
		return json.Marshal(map[string]float64{"result": result})
	})
}

func postJSON(ctx context.Context, client *http.Client, url string, payload interface{}, label string) (json.RawMessage, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s request: %w", label, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build %s request: %w", label, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s API request failed: %w", label, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s response: %w", label, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s API error: status %d - %s", label, resp.StatusCode, strings.TrimSpace(string(data)))
	}
	return data, nil
}

func isNumeric(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
