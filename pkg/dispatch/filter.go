package dispatch

import (
	"context"
	"strings"
)

// Filter decides whether a handler accepts the request.
type Filter func(ctx context.Context, req *Request) bool

// Command matches messages whose leading bot_command entity names one of names.
// Names are compared case-insensitively and without the leading slash.
func Command(names ...string) Filter {
	accepted := make(map[string]struct{}, len(names))
	for _, name := range names {
		accepted[normalizeCommandName(name)] = struct{}{}
	}

	return func(_ context.Context, req *Request) bool {
		message := req.Message()
		if message == nil || !message.IsCommand() {
			return false
		}
		_, ok := accepted[normalizeCommandName(message.Command())]
		return ok
	}
}

// AnyCommand matches every command message.
func AnyCommand() Filter {
	return func(_ context.Context, req *Request) bool {
		message := req.Message()
		return message != nil && message.IsCommand()
	}
}

// Text matches messages whose text equals text exactly.
func Text(text string) Filter {
	return func(_ context.Context, req *Request) bool {
		message := req.Message()
		return message != nil && message.Text == text
	}
}

// TextContains matches messages whose text contains substr.
func TextContains(substr string) Filter {
	return func(_ context.Context, req *Request) bool {
		message := req.Message()
		return message != nil && strings.Contains(message.Text, substr)
	}
}

// HasText matches messages carrying non-empty text.
func HasText() Filter {
	return func(_ context.Context, req *Request) bool {
		message := req.Message()
		return message != nil && message.Text != ""
	}
}

// CallbackData matches callback queries whose data equals data exactly.
func CallbackData(data string) Filter {
	return func(_ context.Context, req *Request) bool {
		query := req.Callback()
		return query != nil && query.Data == data
	}
}

// CallbackDataPrefix matches callback queries whose data starts with prefix.
func CallbackDataPrefix(prefix string) Filter {
	return func(_ context.Context, req *Request) bool {
		query := req.Callback()
		return query != nil && strings.HasPrefix(query.Data, prefix)
	}
}

// InState matches conversations currently in one of states.
func InState(states ...State) Filter {
	return func(_ context.Context, req *Request) bool {
		for _, state := range states {
			if req.CurrentState() == state {
				return true
			}
		}
		return false
	}
}

// NoState matches conversations without an active state.
func NoState() Filter {
	return InState("")
}

// HasDice matches messages carrying a dice payload.
func HasDice() Filter {
	return func(_ context.Context, req *Request) bool {
		message := req.Message()
		return message != nil && message.Dice != nil
	}
}

// ChatType matches updates whose chat type is one of types.
func ChatType(types ...string) Filter {
	return func(_ context.Context, req *Request) bool {
		chatType := ""
		switch {
		case req.Message() != nil && req.Message().Chat != nil:
			chatType = req.Message().Chat.Type
		case req.Callback() != nil && req.Callback().Message != nil && req.Callback().Message.Chat != nil:
			chatType = req.Callback().Message.Chat.Type
		}
		for _, candidate := range types {
			if candidate == chatType {
				return true
			}
		}
		return false
	}
}

// Not inverts filter.
func Not(filter Filter) Filter {
	return func(ctx context.Context, req *Request) bool {
		return !filter(ctx, req)
	}
}

func normalizeCommandName(name string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(name), "/"))
}

func matchAll(ctx context.Context, req *Request, filters []Filter) bool {
	for _, filter := range filters {
		if filter == nil {
			continue
		}
		if !filter(ctx, req) {
			return false
		}
	}

	return true
}
