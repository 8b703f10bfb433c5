package provider

import "errors"

var ErrUnknownProvider = errors.New("unknown provider")

// Provider identifies an LLM vendor with its own request/response schema.
type Provider string

const (
	OpenAI    Provider = "openai"
	Anthropic Provider = "anthropic"
)

func Parse(raw string) (Provider, error) {
	switch Provider(raw) {
	case OpenAI, Anthropic:
		return Provider(raw), nil
	default:
		return "", ErrUnknownProvider
	}
}

func (p Provider) String() string {
	return string(p)
}

func All() []Provider {
	return []Provider{OpenAI, Anthropic}
}
