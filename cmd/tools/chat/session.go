package main

import (
	"fmt"
	"strings"
)

type message struct {
	Role    string
	Content string
}

// session keeps the transcript of one interactive chat.
type session struct {
	messages []message
	window   int
}

func newSession(window int) *session {
	return &session{window: window}
}

func (s *session) add(role, content string) {
	s.messages = append(s.messages, message{Role: role, Content: content})
}

func (s *session) reset() {
	s.messages = nil
}

// history renders the trailing window of the transcript as "ROLE: content"
// lines. Multi-line content is flattened so each message stays on one line.
func (s *session) history() string {
	recent := s.messages
	if s.window > 0 && len(recent) > s.window {
		recent = recent[len(recent)-s.window:]
	}
	lines := make([]string, len(recent))
	for i, m := range recent {
		lines[i] = fmt.Sprintf("%s: %s", strings.ToUpper(m.Role), strings.Join(strings.Fields(m.Content), " "))
	}
	return strings.Join(lines, "\n")
}
