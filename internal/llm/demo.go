package llm

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"math/big"
	"regexp"
	"strconv"
	"strings"
)

// DemoModel is the model name reported in demo mode.
const DemoModel = "demo-model"

var mathPattern = regexp.MustCompile(`(\d+)\s*([+\-*/])\s*(\d+)`)

// DemoProvider answers from fixed rules without any network access.
type DemoProvider struct{}

func NewDemo() *DemoProvider { return &DemoProvider{} }

func (p *DemoProvider) Name() string  { return ProviderDemo }
func (p *DemoProvider) Model() string { return DemoModel }

func (p *DemoProvider) Models(ctx context.Context) ([]ModelInfo, error) {
	return []ModelInfo{{Name: DemoModel, Digest: "demo", ModifiedAt: "2024-01-01T00:00:00Z"}}, nil
}

func (p *DemoProvider) Generate(ctx context.Context, req Request) (Generation, error) {
	text := demoAnswer(req.Text)
	switch {
	case req.Temperature > 0.8:
		text += " (High creativity mode enabled!)"
	case req.Temperature < 0.3:
		text += " (Focused response mode.)"
	}

	return Generation{
		Text:       text,
		TokensUsed: len(strings.Fields(text)) + len(strings.Fields(req.Text)),
		Model:      DemoModel,
		Metadata: map[string]any{
			"provider":        ProviderDemo,
			"model":           DemoModel,
			"temperature":     req.Temperature,
			"top_p":           req.TopP,
			"demo_mode":       true,
			"prompt_length":   len(req.Text),
			"response_length": len(text),
		},
	}, nil
}

func demoAnswer(prompt string) string {
	lower := strings.ToLower(prompt)
	match := mathPattern.FindStringSubmatch(prompt)

	switch {
	case match != nil || containsAny(lower, "calculate", "math", "add", "subtract", "multiply", "divide"):
		if strings.Contains(prompt, "2+2") || strings.Contains(prompt, "2 + 2") {
			return "2 + 2 = 4. This is a basic arithmetic operation where we add two numbers together."
		}
		if match == nil {
			return "I can help with basic math operations like addition, subtraction, multiplication, and division."
		}
		result, ok := calculate(match[1], match[2], match[3])
		if !ok {
			return "I can help with basic math operations. Could you please rephrase your question?"
		}
		return fmt.Sprintf("The answer to %s is %s.", match[0], result)
	case containsAny(lower, "hello", "hi", "hey", "greetings"):
		return pick(prompt,
			"Hello! I'm a demo AI assistant. How can I help you today?",
			"Hi there! I'm running in demo mode. What would you like to know?",
			"Greetings! I'm here to help with your questions in demo mode.",
		)
	case containsAny(lower, "help", "what can you do", "about", "who are you"):
		return "I'm a demo AI assistant running in Agent CAG. I can help with basic questions, " +
			"simple math, and provide information. This is a demonstration mode that doesn't " +
			"require external API keys."
	case containsAny(lower, "weather", "temperature", "forecast"):
		return "I'm in demo mode and don't have access to real weather data. " +
			"For actual weather information, you'd need to configure a real LLM provider."
	case containsAny(lower, "code", "programming", "python", "javascript", "function"):
		return "I can discuss programming concepts in demo mode. For detailed code assistance, " +
			"consider using a full LLM provider like OpenAI or Groq."
	default:
		return pick(prompt,
			fmt.Sprintf("Thank you for your question: '%s'. I'm running in demo mode, so my responses are limited.", prompt),
			fmt.Sprintf("I understand you're asking about '%s'. In demo mode, I provide basic responses.", prompt),
			fmt.Sprintf("Your question '%s' is interesting. This is a demo response to show the system is working.", prompt),
		)
	}
}

// calculate evaluates integer arithmetic exactly, whatever the operand size.
func calculate(a, op, b string) (string, bool) {
	x, ok := new(big.Int).SetString(a, 10)
	if !ok {
		return "", false
	}
	y, ok := new(big.Int).SetString(b, 10)
	if !ok {
		return "", false
	}
	switch op {
	case "+":
		return new(big.Int).Add(x, y).String(), true
	case "-":
		return new(big.Int).Sub(x, y).String(), true
	case "*":
		return new(big.Int).Mul(x, y).String(), true
	default:
		if y.Sign() == 0 {
			return "", false
		}
		q, _ := new(big.Rat).SetFrac(x, y).Float64()
		if math.IsInf(q, 0) {
			return "", false
		}
		s := strconv.FormatFloat(q, 'f', -1, 64)
		if !strings.Contains(s, ".") {
			s += ".0"
		}
		return s, true
	}
}

func containsAny(s string, words ...string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}

// pick chooses a variant from the prompt hash so identical prompts get identical answers.
func pick(prompt string, variants ...string) string {
	h := fnv.New32a()
	_, _ = h.Write([]byte(prompt))
	return variants[h.Sum32()%uint32(len(variants))]
}
