// Package genaitest provides a scripted language-model client for tests.
package genaitest

import (
	"context"
	"strings"
	"sync"
	"time"

	"shopgenie-workers/internal/common/genai"
)

// Reply is one scripted response.
type Reply struct {
	Text string
	Err  error
}

// Client answers prompts by routing on a prompt substring, falling back to
// Default. Calls and prompts are recorded. A non-zero Delay holds every
// reply until it elapses or the context ends.
type Client struct {
	mu      sync.Mutex
	Routes  map[string][]Reply
	Default []Reply
	Delay   time.Duration
	prompts []string
	hits    map[string]int
}

func New() *Client {
	return &Client{Routes: map[string][]Reply{}, hits: map[string]int{}}
}

// On scripts replies for prompts containing marker. The last reply repeats.
func (c *Client) On(marker string, replies ...Reply) *Client {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Routes[marker] = replies
	return c
}

func (c *Client) Complete(ctx context.Context, prompt string, opts ...genai.Option) (string, error) {
	c.mu.Lock()
	c.prompts = append(c.prompts, prompt)

	key := ""
	replies := c.Default
	for marker, r := range c.Routes {
		if strings.Contains(prompt, marker) {
			key, replies = marker, r
			break
		}
	}
	n := c.hits[key]
	c.hits[key] = n + 1
	delay := c.Delay
	c.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
		}
	}
	if err := ctx.Err(); err != nil {
		return "", genai.ErrLLMTimeout
	}
	if len(replies) == 0 {
		return "", nil
	}
	if n >= len(replies) {
		n = len(replies) - 1
	}
	return replies[n].Text, replies[n].Err
}

// Calls returns the number of prompts containing marker; "" counts all.
func (c *Client) Calls(marker string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	count := 0
	for _, p := range c.prompts {
		if strings.Contains(p, marker) {
			count++
		}
	}
	return count
}

// Prompts returns a copy of every prompt received.
func (c *Client) Prompts() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.prompts...)
}
