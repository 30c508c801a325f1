package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"mend/internal/client"
	"strings"
	"time"
)

const recoveryPersonaPrompt = "You are a helpful SaaS founder. A customer's payment failed. " +
	"Write a very short, empathetic email (2-3 sentences). Don't sound like a debt collector. " +
	"Sound like a friend checking in because their card might have expired. No subject line, just body."

// MessageComposer writes the note sent to a customer whose payment failed.
type MessageComposer struct {
	generator client.TextGenerator
	timeout   time.Duration
	log       *slog.Logger
}

// NewMessageComposer accepts a nil generator, in which case every message is the template.
func NewMessageComposer(generator client.TextGenerator, timeout time.Duration, log *slog.Logger) *MessageComposer {
	return &MessageComposer{
		generator: generator,
		timeout:   timeout,
		log:       log,
	}
}

// Compose never returns an empty message. amount is a decimal string such as "49.00".
func (c *MessageComposer) Compose(ctx context.Context, name, amount, currency string) (string, StepResult) {
	const step = "compose_message"

	if c.generator == nil {
		return fallbackMessage(name, amount, currency), stepOK(step)
	}

	genCtx := ctx
	if c.timeout > 0 {
		var cancel context.CancelFunc
		genCtx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	prompt := fmt.Sprintf("Customer: %s, Amount: %s %s.", name, amount, currency)
	text, err := c.generator.Generate(genCtx, recoveryPersonaPrompt, prompt)
	if err == nil && strings.TrimSpace(text) == "" {
		err = errors.New("empty completion")
	}
	if err != nil {
		c.log.WarnContext(ctx, "message generation failed, using template", "err", err)
		return fallbackMessage(name, amount, currency), stepDegraded(step, fmt.Errorf("generate message: %w", err))
	}

	return strings.TrimSpace(text), stepOK(step)
}

func fallbackMessage(name, amount, currency string) string {
	if name == "" {
		name = defaultCustomerName
	}
	return fmt.Sprintf(
		"Hi %s, just a quick heads-up that your payment for $%s %s didn't go through. "+
			"It's usually just an expired card, you can update it here when you have a moment.",
		name, amount, currency,
	)
}
