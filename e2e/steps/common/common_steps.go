package common

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/cucumber/godog"
)

// TestContext is the part of the scenario state these steps need.
type TestContext interface {
	Login(name string) error
	Request(method, path, as string, body any) error
	Status() int
	Body() []byte
	Field(name string) (any, error)
	Save(field, alias string) error
}

// RegisterSteps registers login, generic request and assertion steps.
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	s := &commonSteps{tc: tc}

	ctx.Step(`^"([^"]*)" has logged in$`, s.loggedIn)
	ctx.Step(`^"([^"]*)" has verified their rank card$`, s.verified)
	ctx.Step(`^"([^"]*)" sends a (GET|POST|PATCH) request to "([^"]*)"$`, s.send)
	ctx.Step(`^"([^"]*)" sends a (POST|PATCH) request to "([^"]*)" with body:$`, s.sendBody)
	ctx.Step(`^an anonymous client sends a (GET|POST) request to "([^"]*)"$`, s.sendAnonymous)

	ctx.Step(`^the response status should be (\d+)$`, s.statusShouldBe)
	ctx.Step(`^the response field "([^"]*)" should be "([^"]*)"$`, s.fieldShouldBe)
	ctx.Step(`^the response field "([^"]*)" should be (\d+)$`, s.numberFieldShouldBe)
	ctx.Step(`^I save the response field "([^"]*)" as "([^"]*)"$`, s.tc.Save)
}

type commonSteps struct {
	tc TestContext
}

func (s *commonSteps) loggedIn(_ context.Context, name string) error {
	return s.tc.Login(name)
}

func (s *commonSteps) verified(_ context.Context, name string) error {
	if err := s.tc.Request(http.MethodPost, "/v1/verifications", name, nil); err != nil {
		return err
	}
	if s.tc.Status() != http.StatusCreated {
		return fmt.Errorf("start verification: status %d: %s", s.tc.Status(), s.tc.Body())
	}
	alias := "verification-" + name
	if err := s.tc.Save("id", alias); err != nil {
		return err
	}
	if err := s.tc.Request(http.MethodGet, "/v1/verifications/{"+alias+"}", name, nil); err != nil {
		return err
	}
	return s.fieldShouldBe(context.Background(), "status", "SUCCEEDED")
}

func (s *commonSteps) send(_ context.Context, name, method, path string) error {
	return s.tc.Request(method, path, name, nil)
}

func (s *commonSteps) sendBody(_ context.Context, name, method, path string, body *godog.DocString) error {
	return s.tc.Request(method, path, name, body.Content)
}

func (s *commonSteps) sendAnonymous(_ context.Context, method, path string) error {
	return s.tc.Request(method, path, "", nil)
}

func (s *commonSteps) statusShouldBe(_ context.Context, want int) error {
	if got := s.tc.Status(); got != want {
		return fmt.Errorf("expected status %d, got %d: %s", want, got, s.tc.Body())
	}
	return nil
}

func (s *commonSteps) fieldShouldBe(_ context.Context, field, want string) error {
	v, err := s.tc.Field(field)
	if err != nil {
		return err
	}
	if got := fmt.Sprint(v); got != want {
		return fmt.Errorf("expected %s=%q, got %q", field, want, got)
	}
	return nil
}

func (s *commonSteps) numberFieldShouldBe(ctx context.Context, field string, want int) error {
	return s.fieldShouldBe(ctx, field, strconv.Itoa(want))
}
