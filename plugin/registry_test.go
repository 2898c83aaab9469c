package plugin

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/xraph/keysmith/claim"
	"github.com/xraph/keysmith/id"
	"github.com/xraph/keysmith/serviceclient"
)

// testPlugin implements Plugin + ClaimsResolved + RevocationCascade.
type testPlugin struct {
	resolvedCalled bool
	cascadeCalled  bool
}

func (t *testPlugin) Name() string { return "test-plugin" }

func (t *testPlugin) OnClaimsResolved(_ context.Context, _, _ string, _ map[string]claim.Level) error {
	t.resolvedCalled = true
	return nil
}

func (t *testPlugin) OnRevocationCascade(_ context.Context, _, _ string, _ any) error {
	t.cascadeCalled = true
	return nil
}

// minimalPlugin only implements Plugin (no hooks).
type minimalPlugin struct{}

func (m *minimalPlugin) Name() string { return "minimal" }

// failingPlugin returns an error from its hook; the registry must swallow it.
type failingPlugin struct{}

func (f *failingPlugin) Name() string { return "failing" }

func (f *failingPlugin) OnClientDelegated(_ context.Context, _ *serviceclient.ServiceClient) error {
	return errors.New("boom")
}

func TestRegistryDispatch(t *testing.T) {
	ctx := context.Background()
	reg := NewRegistry(slog.Default())

	tp := &testPlugin{}
	reg.Register(tp)
	reg.Register(&minimalPlugin{})

	if len(reg.Plugins()) != 2 {
		t.Fatalf("expected 2 plugins, got %d", len(reg.Plugins()))
	}

	// Should dispatch ClaimsResolved to testPlugin only.
	reg.EmitClaimsResolved(ctx, "t1", "u1", map[string]claim.Level{"approve_expense": 3})
	if !tp.resolvedCalled {
		t.Fatal("OnClaimsResolved was not called")
	}

	// Should dispatch RevocationCascade.
	reg.EmitRevocationCascade(ctx, "t1", "u1", nil)
	if !tp.cascadeCalled {
		t.Fatal("OnRevocationCascade was not called")
	}

	// Should not panic on hooks with no listeners.
	reg.EmitCeilingDenied(ctx, "t1", "u1", map[id.ClaimID]claim.Level{})
	reg.EmitClaimsRecalculated(ctx, "t1", "u1", nil)
	reg.EmitShutdown(ctx)
}

func TestRegistrySwallowsHookErrors(t *testing.T) {
	ctx := context.Background()
	reg := NewRegistry(slog.Default())
	reg.Register(&failingPlugin{})

	// Must not panic or propagate.
	reg.EmitClientDelegated(ctx, &serviceclient.ServiceClient{ID: id.NewServiceClientID()})
}
