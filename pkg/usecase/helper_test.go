package usecase_test

import (
	"context"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/secmon-lab/riskledger/pkg/domain/model/auth"
	"github.com/secmon-lab/riskledger/pkg/domain/types"
	"github.com/secmon-lab/riskledger/pkg/repository/memory"
	"github.com/secmon-lab/riskledger/pkg/usecase"
	"github.com/secmon-lab/riskledger/pkg/utils/async"
	goslack "github.com/slack-go/slack"
)

const testWorkspace = "acme"

// rolePolicy mirrors the built-in Rego policy without compiling it
type rolePolicy struct{}

func (rolePolicy) Evaluate(ctx context.Context, actor *auth.Actor, resource types.Resource, operation types.Operation) (bool, error) {
	switch operation {
	case types.OperationRead:
		return true, nil
	case types.OperationCreate, types.OperationUpdate:
		return slices.Contains(actor.Roles, "editor") || slices.Contains(actor.Roles, "admin"), nil
	case types.OperationDelete:
		return slices.Contains(actor.Roles, "admin"), nil
	}
	return false, nil
}

type errPolicy struct{ err error }

func (p errPolicy) Evaluate(ctx context.Context, actor *auth.Actor, resource types.Resource, operation types.Operation) (bool, error) {
	return false, p.err
}

type postedMessage struct {
	channelID string
	text      string
	blocks    []goslack.Block
}

type fakeSlack struct {
	mu    sync.Mutex
	posts []postedMessage
	err   error
}

func (f *fakeSlack) PostMessage(ctx context.Context, channelID string, blocks []goslack.Block, text string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	f.posts = append(f.posts, postedMessage{channelID: channelID, text: text, blocks: blocks})
	return "1700000000.000100", nil
}

func (f *fakeSlack) GetChannelNames(ctx context.Context, ids []string) (map[string]string, error) {
	return map[string]string{}, nil
}

func (f *fakeSlack) Posts() []postedMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]postedMessage(nil), f.posts...)
}

// tickingClock returns a strictly increasing time on every call
func tickingClock(start time.Time) func() time.Time {
	var mu sync.Mutex
	current := start
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		current = current.Add(time.Second)
		return current
	}
}

var baseTime = time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)

type testEnv struct {
	uc    *usecase.UseCases
	repo  *memory.Memory
	slack *fakeSlack
}

func newTestEnv(t *testing.T, opts ...usecase.Option) *testEnv {
	t.Helper()
	repo := memory.New()
	slack := &fakeSlack{}
	base := []usecase.Option{
		usecase.WithPolicy(rolePolicy{}),
		usecase.WithDispatcher(async.Inline{}),
		usecase.WithSlack(slack),
		usecase.WithClock(tickingClock(baseTime)),
		usecase.WithBaseURL("https://riskledger.example.com"),
	}
	return &testEnv{
		uc:    usecase.New(repo, append(base, opts...)...),
		repo:  repo,
		slack: slack,
	}
}

func actorWith(roles ...string) *auth.Actor {
	return &auth.Actor{
		WorkspaceID: testWorkspace,
		UserID:      "U_EDITOR",
		Roles:       roles,
		IPAddress:   "198.51.100.7",
	}
}

func editor() *auth.Actor { return actorWith("editor") }
func admin() *auth.Actor  { return actorWith("admin") }
func viewer() *auth.Actor { return actorWith("viewer") }

func validInput() usecase.RiskInput {
	return usecase.RiskInput{
		Title:       "Unpatched VPN appliance",
		Description: "Internet-facing VPN runs an outdated firmware",
		Category:    types.CategoryTechnology,
		Probability: 3,
		Impact:      4,
	}
}

func ptr[T any](v T) *T { return &v }
