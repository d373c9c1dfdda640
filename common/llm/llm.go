package llm

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/invopop/jsonschema"
)

// ErrEmptyResponse means the API answered but returned nothing usable.
var ErrEmptyResponse = errors.New("empty response")

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message represents a conversation message.
type Message struct {
	Role    string
	Content string
}

func SystemMessage(content string) Message {
	return Message{Role: RoleSystem, Content: content}
}

func UserMessage(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

// RetryPolicy bounds retries of model calls. There is no retry at all in the
// SDK client (MaxRetries 0) so this is the only place it happens.
type RetryPolicy struct {
	MaxTries        uint
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// DefaultRetryPolicy retries three times with 1s, 2s, 4s style spacing.
var DefaultRetryPolicy = RetryPolicy{
	MaxTries:        3,
	InitialInterval: time.Second,
	MaxInterval:     4 * time.Second,
}

// Retry runs op until it succeeds, fails with a non-retryable error, or the
// policy is exhausted. The last error is returned unchanged.
func Retry[T any](ctx context.Context, policy RetryPolicy, op func() (T, error)) (T, error) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = policy.InitialInterval
	b.MaxInterval = policy.MaxInterval
	b.Multiplier = 2

	maxTries := policy.MaxTries
	if maxTries == 0 {
		maxTries = 1
	}

	attempt := 0
	res, err := backoff.Retry(ctx, func() (T, error) {
		attempt++
		res, err := op()
		if err != nil && !IsRetryable(ctx, err) {
			return res, backoff.Permanent(err)
		}
		return res, err
	},
		backoff.WithBackOff(b),
		backoff.WithMaxTries(maxTries),
		backoff.WithMaxElapsedTime(0),
		backoff.WithNotify(func(err error, next time.Duration) {
			slog.WarnContext(ctx, "llm call failed, retrying",
				"attempt", attempt,
				"next_in", next,
				"error", err)
		}),
	)

	// a permanent error on the final try comes back still wrapped
	var perm *backoff.PermanentError
	if errors.As(err, &perm) {
		err = perm.Unwrap()
	}
	return res, err
}

func GenerateSchema[T any]() any {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	var v T
	return reflector.Reflect(v)
}

func Temp(t float64) *float64 {
	return &t
}
