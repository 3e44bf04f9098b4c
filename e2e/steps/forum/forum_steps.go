package forum

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/cucumber/godog"
)

type TestContext interface {
	Request(method, path, as string, body any) error
	Status() int
	Body() []byte
	Save(field, alias string) error
}

// RegisterSteps registers forum creation, membership and listing steps.
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	s := &forumSteps{tc: tc}

	ctx.Step(`^"([^"]*)" has created a forum "([^"]*)" for rank "([^"]*)" with capacity (\d+)$`, s.created)
	ctx.Step(`^"([^"]*)" (joins|leaves|archives) forum "([^"]*)"$`, s.membership)
	ctx.Step(`^"([^"]*)" should see (\d+) accessible forums?$`, s.accessibleCount)
}

type forumSteps struct {
	tc TestContext
}

func (s *forumSteps) created(_ context.Context, name, alias, rank string, capacity int) error {
	err := s.tc.Request(http.MethodPost, "/v1/forums", name, map[string]any{
		"required_rank": rank,
		"capacity":      capacity,
		"description":   alias,
	})
	if err != nil {
		return err
	}
	if s.tc.Status() != http.StatusCreated {
		return fmt.Errorf("create forum %s: status %d: %s", alias, s.tc.Status(), s.tc.Body())
	}
	return s.tc.Save("id", alias)
}

func (s *forumSteps) membership(_ context.Context, name, action, alias string) error {
	verb := map[string]string{"joins": "join", "leaves": "leave", "archives": "archive"}[action]
	return s.tc.Request(http.MethodPost, "/v1/forums/{"+alias+"}/"+verb, name, nil)
}

func (s *forumSteps) accessibleCount(_ context.Context, name string, want int) error {
	if err := s.tc.Request(http.MethodGet, "/v1/members/me/forums", name, nil); err != nil {
		return err
	}
	var resp struct {
		Forums []json.RawMessage `json:"forums"`
	}
	if err := json.Unmarshal(s.tc.Body(), &resp); err != nil {
		return err
	}
	if len(resp.Forums) != want {
		return fmt.Errorf("expected %d accessible forums, got %d: %s", want, len(resp.Forums), s.tc.Body())
	}
	return nil
}
