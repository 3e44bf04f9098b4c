package chat

import (
	"context"
	"fmt"
	"net/http"

	"github.com/cucumber/godog"
)

type TestContext interface {
	Request(method, path, as string, body any) error
	Status() int
	Body() []byte
	Save(field, alias string) error
	MemberID(name string) string
}

// RegisterSteps registers private chat steps.
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	s := &chatSteps{tc: tc}

	ctx.Step(`^"([^"]*)" opens a "([^"]*)" chat with "([^"]*)"$`, s.open)
	ctx.Step(`^"([^"]*)" has opened a "([^"]*)" chat "([^"]*)" with "([^"]*)"$`, s.opened)
	ctx.Step(`^"([^"]*)" terminates chat "([^"]*)"$`, s.terminate)
}

type chatSteps struct {
	tc TestContext
}

func (s *chatSteps) open(_ context.Context, name, sessionType, peer string) error {
	peerID := s.tc.MemberID(peer)
	if peerID == "" {
		return fmt.Errorf("%s has not logged in", peer)
	}
	return s.tc.Request(http.MethodPost, "/v1/chats", name, map[string]string{
		"peer_id": peerID,
		"type":    sessionType,
	})
}

func (s *chatSteps) opened(ctx context.Context, name, sessionType, alias, peer string) error {
	if err := s.open(ctx, name, sessionType, peer); err != nil {
		return err
	}
	if s.tc.Status() != http.StatusCreated {
		return fmt.Errorf("open chat: status %d: %s", s.tc.Status(), s.tc.Body())
	}
	return s.tc.Save("id", alias)
}

func (s *chatSteps) terminate(_ context.Context, name, alias string) error {
	return s.tc.Request(http.MethodPost, "/v1/chats/{"+alias+"}/terminate", name, nil)
}
