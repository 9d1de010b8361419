package bottest

import (
	"strings"
	"sync"
)

// ChatFilter restricts store queries to one chat. The zero value matches
// every call.
type ChatFilter struct {
	chatID int64
	set    bool
}

// AnyChat returns the filter that matches every call.
func AnyChat() ChatFilter {
	return ChatFilter{}
}

// OnlyChat returns a filter matching calls whose chat_id parameter equals id.
// Calls without a chat_id never match it.
func OnlyChat(id int64) ChatFilter {
	return ChatFilter{chatID: id, set: true}
}

// Match reports whether call passes the filter.
func (f ChatFilter) Match(call CapturedCall) bool {
	if !f.set {
		return true
	}
	id, ok := call.ChatID()

	return ok && id == f.chatID
}

// Store is the append-only log of captured calls with typed queries.
// Query results are copies in insertion order.
type Store struct {
	mu    sync.RWMutex
	calls []CapturedCall
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{}
}

// Add appends call.
func (s *Store) Add(call CapturedCall) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.calls = append(s.calls, call)
}

// Clear drops every recorded call.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.calls = nil
}

// Len returns the number of recorded calls.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.calls)
}

// All returns every recorded call.
func (s *Store) All() []CapturedCall {
	return s.Since(0)
}

// Since returns the calls recorded after the first n. A clear in between
// makes n point past the end and yields an empty result.
func (s *Store) Since(n int) []CapturedCall {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if n < 0 {
		n = 0
	}
	if n >= len(s.calls) {
		return []CapturedCall{}
	}

	return append([]CapturedCall(nil), s.calls[n:]...)
}

// ByKind returns calls of kind.
func (s *Store) ByKind(kind CallKind) []CapturedCall {
	return s.filter(kind, AnyChat())
}

// SentMessages returns sendMessage calls passing filter.
func (s *Store) SentMessages(filter ChatFilter) []CapturedCall {
	return s.filter(CallSendMessage, filter)
}

// EditedMessages returns editMessageText calls passing filter.
func (s *Store) EditedMessages(filter ChatFilter) []CapturedCall {
	return s.filter(CallEditMessageText, filter)
}

// DeletedMessages returns deleteMessage calls passing filter.
func (s *Store) DeletedMessages(filter ChatFilter) []CapturedCall {
	return s.filter(CallDeleteMessage, filter)
}

// CallbackAnswers returns answerCallbackQuery calls.
func (s *Store) CallbackAnswers() []CapturedCall {
	return s.filter(CallAnswerCallback, AnyChat())
}

// DiceSends returns sendDice calls passing filter.
func (s *Store) DiceSends(filter ChatFilter) []CapturedCall {
	return s.filter(CallSendDice, filter)
}

// LastMessage returns the most recent sendMessage call passing filter.
func (s *Store) LastMessage(filter ChatFilter) (CapturedCall, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for idx := len(s.calls) - 1; idx >= 0; idx-- {
		call := s.calls[idx]
		if call.Kind == CallSendMessage && filter.Match(call) {
			return call, true
		}
	}

	return CapturedCall{}, false
}

// LastCall returns the most recent call of any kind.
func (s *Store) LastCall() (CapturedCall, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.calls) == 0 {
		return CapturedCall{}, false
	}

	return s.calls[len(s.calls)-1], true
}

// ContainsText reports whether any sendMessage call passing filter has text
// containing substr. The match is case-sensitive; empty texts never match.
func (s *Store) ContainsText(substr string, filter ChatFilter) bool {
	for _, call := range s.SentMessages(filter) {
		if text := call.Text(); text != "" && strings.Contains(text, substr) {
			return true
		}
	}

	return false
}

// CountByKind returns the number of calls of kind.
func (s *Store) CountByKind(kind CallKind) int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, call := range s.calls {
		if call.Kind == kind {
			count++
		}
	}

	return count
}

func (s *Store) filter(kind CallKind, filter ChatFilter) []CapturedCall {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := make([]CapturedCall, 0)
	for _, call := range s.calls {
		if call.Kind == kind && filter.Match(call) {
			matched = append(matched, call)
		}
	}

	return matched
}
