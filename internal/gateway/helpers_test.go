package gateway

import (
	"fmt"
	"io"
	"sync"

	"github.com/PaulBabatuyi/supportchat/internal/auth"
	"github.com/PaulBabatuyi/supportchat/internal/chat"
	"github.com/PaulBabatuyi/supportchat/internal/logging"
)

//nolint:gochecknoinits // keep test output quiet
func init() {
	logging.Init(logging.Config{Level: "disabled", Output: io.Discard})
}

// fakeSender records every event it is handed.
type fakeSender struct {
	id   string
	fail error

	mu     sync.Mutex
	events []Event
}

func newFakeSender(id string) *fakeSender { return &fakeSender{id: id} }

func (f *fakeSender) ID() string { return f.id }

func (f *fakeSender) Send(e Event) error {
	if f.fail != nil {
		return f.fail
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, e)
	return nil
}

func (f *fakeSender) Events() []Event {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Event(nil), f.events...)
}

func (f *fakeSender) Last() (Event, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.events) == 0 {
		return Event{}, false
	}
	return f.events[len(f.events)-1], true
}

// fakeVerifier maps opaque tokens to identities.
type fakeVerifier map[string]auth.Identity

func (f fakeVerifier) Verify(token string) (auth.Identity, error) {
	id, ok := f[token]
	if !ok {
		return auth.Identity{}, fmt.Errorf("%w: unknown token", chat.ErrAuth)
	}
	return id, nil
}

func testVerifier() fakeVerifier {
	return fakeVerifier{
		"tok-42":     {SubjectID: "42", Role: chat.RoleUser},
		"tok-7":      {SubjectID: "7", Role: chat.RoleUser},
		"tok-admin":  {SubjectID: "a1", Role: chat.RoleAdmin},
		"tok-admin2": {SubjectID: "a2", Role: chat.RoleAdmin},
	}
}
