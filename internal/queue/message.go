package queue

import (
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"

	"github.com/pc1e0/comm/internal/domain"
)

// Message is one Reddit item announced on a stream. It carries only the
// fullname; the bot fetches the content fresh when handling it.
type Message struct {
	ID        string
	Kind      domain.NodeKind
	Fullname  string
	Attempt   int
	TraceID   string
	LastError string
	Raw       redis.XMessage
}

func ParseMessage(msg redis.XMessage) (Message, error) {
	fullname, err := parseString(msg.Values, "fullname")
	if err != nil {
		return Message{}, err
	}
	kindFromName, ok := domain.KindFromFullname(fullname)
	if !ok {
		return Message{}, fmt.Errorf("unsupported fullname %q", fullname)
	}

	kind, err := parseOptionalString(msg.Values, "kind")
	if err != nil {
		return Message{}, err
	}
	if kind != "" && domain.NodeKind(kind) != kindFromName {
		return Message{}, fmt.Errorf("kind %q does not match fullname %q", kind, fullname)
	}

	attempt, err := parseOptionalInt(msg.Values, "attempt")
	if err != nil {
		return Message{}, err
	}
	if attempt == 0 {
		attempt = 1
	}

	traceID, err := parseOptionalString(msg.Values, "trace_id")
	if err != nil {
		return Message{}, err
	}
	lastError, err := parseOptionalString(msg.Values, "last_error")
	if err != nil {
		return Message{}, err
	}

	return Message{
		ID:        msg.ID,
		Kind:      kindFromName,
		Fullname:  fullname,
		Attempt:   attempt,
		TraceID:   traceID,
		LastError: lastError,
		Raw:       msg,
	}, nil
}

func parseString(values map[string]any, key string) (string, error) {
	raw, ok := values[key]
	if !ok {
		return "", fmt.Errorf("missing %s", key)
	}
	return fmt.Sprint(raw), nil
}

func parseOptionalInt(values map[string]any, key string) (int, error) {
	raw, ok := values[key]
	if !ok {
		return 0, nil
	}
	num, err := strconv.Atoi(fmt.Sprint(raw))
	if err != nil {
		return 0, fmt.Errorf("parsing %s: %w", key, err)
	}
	return num, nil
}

func parseOptionalString(values map[string]any, key string) (string, error) {
	raw, ok := values[key]
	if !ok {
		return "", nil
	}
	return fmt.Sprint(raw), nil
}

func messageValues(msg Message, attempt int) map[string]any {
	values := map[string]any{
		"kind":     string(msg.Kind),
		"fullname": msg.Fullname,
		"attempt":  attempt,
	}
	if msg.TraceID != "" {
		values["trace_id"] = msg.TraceID
	}
	return values
}
