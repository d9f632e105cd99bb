package harness

import "github.com/cellsight/cellsight/domain"

// DefaultCases returns the canonical demonstration suite.
func DefaultCases() []domain.TestCase {
	return []domain.TestCase{
		{
			ID:               "test_001",
			Name:             "Weather Query - Success",
			Query:            "What's the weather in London?",
			ExpectedBehavior: "Should use weather tool and return weather information",
			ExpectedTools:    []string{"get_weather"},
		},
		{
			ID:               "test_002",
			Name:             "Customer Lookup - Success",
			Query:            "Look up customer 12345",
			ExpectedBehavior: "Should use customer tool and return customer information",
			ExpectedTools:    []string{"get_customer"},
		},
		{
			ID:               "test_003",
			Name:             "Calculator - Success",
			Query:            "Calculate 15 * 23 + 7",
			ExpectedBehavior: "Should use calculator tool and return result",
			ExpectedTools:    []string{"calculate"},
		},
		{
			ID:               "test_004",
			Name:             "Text Summarization - Success",
			Query:            "Summarize: The quick brown fox jumps over the lazy dog. This is a classic pangram that contains all letters of the alphabet.",
			ExpectedBehavior: "Should use summarize tool",
			ExpectedTools:    []string{"summarize_text"},
		},
		{
			ID:               "test_005",
			Name:             "Customer Not Found",
			Query:            "Look up customer invalid123",
			ExpectedBehavior: "Should fail with customer not found error",
			ExpectedTools:    []string{"get_customer"},
			ExpectedError:    "not found",
		},
		{
			ID:               "test_006",
			Name:             "Invalid Calculation",
			Query:            "Calculate 10 / 0",
			ExpectedBehavior: "Should fail with division by zero error",
			ExpectedTools:    []string{"calculate"},
			ExpectedError:    "division by zero",
		},
		{
			ID:               "test_007",
			Name:             "Text Too Short",
			Query:            "Summarize: Hi",
			ExpectedBehavior: "Should fail with text too short error",
			ExpectedTools:    []string{"summarize_text"},
			ExpectedError:    "too short",
		},
		{
			ID:               "test_008",
			Name:             "Ambiguous Query",
			Query:            "Tell me about the status",
			ExpectedBehavior: "Agent should handle ambiguous query gracefully",
		},
		{
			ID:               "test_009",
			Name:             "Multiple Tools Query",
			Query:            "What's the weather in Paris and calculate 100 + 200",
			ExpectedBehavior: "Should use multiple tools",
			ExpectedTools:    []string{"get_weather", "calculate"},
		},
	}
}
