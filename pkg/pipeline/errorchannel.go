package pipeline

import (
	"log"
	"sort"
	"strconv"
	"sync"
	"sync/atomic"
)

// ErrorChannel holds at most one user-visible failure message.
// Publishing overwrites the current message; Dismiss clears it.
type ErrorChannel struct {
	mu       sync.RWMutex
	message  string
	handlers map[string]func(string)
	nextID   atomic.Uint64
}

// NewErrorChannel creates an empty channel.
func NewErrorChannel() *ErrorChannel {
	return &ErrorChannel{handlers: make(map[string]func(string))}
}

// Publish replaces the current message. An empty message is ignored.
func (c *ErrorChannel) Publish(msg string) {
	if msg == "" {
		return
	}
	c.set(msg)
}

// Dismiss clears the current message. Subscribers receive "".
func (c *ErrorChannel) Dismiss() {
	c.mu.RLock()
	empty := c.message == ""
	c.mu.RUnlock()
	if empty {
		return
	}
	c.set("")
}

// Current returns the message, if any.
func (c *ErrorChannel) Current() (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.message, c.message != ""
}

// Subscribe registers a handler called on every change and returns its id.
func (c *ErrorChannel) Subscribe(handler func(msg string)) string {
	id := "err-" + strconv.FormatUint(c.nextID.Add(1), 10)
	c.mu.Lock()
	c.handlers[id] = handler
	c.mu.Unlock()
	return id
}

// Unsubscribe removes a handler. Returns false if the id is unknown.
func (c *ErrorChannel) Unsubscribe(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.handlers[id]; !ok {
		return false
	}
	delete(c.handlers, id)
	return true
}

func (c *ErrorChannel) set(msg string) {
	c.mu.Lock()
	c.message = msg
	ids := make([]string, 0, len(c.handlers))
	for id := range c.handlers {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	handlers := make([]func(string), 0, len(ids))
	for _, id := range ids {
		handlers = append(handlers, c.handlers[id])
	}
	c.mu.Unlock()

	for _, h := range handlers {
		safeCall(h, msg)
	}
}

func safeCall(h func(string), msg string) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[ErrorChannel] handler panic: %v", r)
		}
	}()
	h(msg)
}
