package llm

import (
	"context"
	"errors"
)

// disabledClient se usa cuando no hay credenciales: cada llamada falla con el
// motivo configurado, y el backend lo reporta como evento ERROR.
type disabledClient struct {
	reason string
}

func NewDisabledClient(reason string) LLMClient {
	return &disabledClient{reason: reason}
}

func (c *disabledClient) Generate(_ context.Context, _ []Message) (string, error) {
	if c.reason == "" {
		return "", errors.New("llm client disabled")
	}
	return "", errors.New(c.reason)
}
