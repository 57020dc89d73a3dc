package chat

import (
	"context"
	"strings"
)

// Provider produces streamed assistant responses. Real deployments plug an
// LLM client in here; the bridge only cares about the stream.
type Provider interface {
	Name() string
	Stream(ctx context.Context, messages []Message) (<-chan string, error)
}

// EchoProvider streams the last user message back word by word. It is the
// default provider for development and tests.
type EchoProvider struct{}

func (EchoProvider) Name() string { return "echo" }

func (EchoProvider) Stream(ctx context.Context, messages []Message) (<-chan string, error) {
	var last string
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == RoleUser {
			last = messages[i].Content
			break
		}
	}

	out := make(chan string)
	go func() {
		defer close(out)
		words := strings.Fields(last)
		for i, word := range words {
			chunk := word
			if i < len(words)-1 {
				chunk += " "
			}
			select {
			case out <- chunk:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}
