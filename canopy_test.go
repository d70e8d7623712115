package canopy

import (
	"context"
	"errors"
	"testing"

	"github.com/aretw0/canopy/pkg/domain"
	"github.com/aretw0/canopy/pkg/ports"
	"github.com/aretw0/canopy/pkg/tools"
)

// replyTool builds a terminal tool that emits the given events in order.
func replyTool(name string, terminal bool, events ...domain.Event) domain.Tool {
	return tools.MustNew(tools.Config{
		Name:     name,
		Terminal: terminal,
		Run: func(ctx context.Context, run *domain.Run, emit domain.EmitFunc) error {
			for _, ev := range events {
				if err := emit(ctx, ev); err != nil {
					return err
				}
			}
			return nil
		},
	})
}

func collect(t *testing.T, events <-chan domain.Event) []domain.Event {
	t.Helper()
	var got []domain.Event
	for ev := range events {
		got = append(got, ev)
	}
	return got
}

func kinds(events []domain.Event) []domain.Kind {
	out := make([]domain.Kind, len(events))
	for i, ev := range events {
		out[i] = ev.Kind()
	}
	return out
}

func TestAddBranchCollision(t *testing.T) {
	tree := New("t")
	if err := tree.AddBranch("a", "first"); err != nil {
		t.Fatalf("AddBranch: %v", err)
	}
	err := tree.AddBranch("a", "second")
	if !errors.Is(err, domain.ErrBranchExists) {
		t.Fatalf("got %v, want ErrBranchExists", err)
	}
}

func TestAddBranchUnknownParent(t *testing.T) {
	tree := New("t")
	err := tree.AddBranch("child", "x", Under("missing"))
	if !errors.Is(err, domain.ErrBranchNotFound) {
		t.Fatalf("got %v, want ErrBranchNotFound", err)
	}
}

type unnamedTool struct{ domain.Tool }

func (unnamedTool) Name() string { return "" }

func TestAddToolErrors(t *testing.T) {
	tree := New("t")
	if err := tree.AddBranch("root", "x", AsRoot()); err != nil {
		t.Fatal(err)
	}

	tool := replyTool("answer", true, domain.Response{Content: "ok"})
	if err := tree.AddTool(tool, "nope"); !errors.Is(err, domain.ErrBranchNotFound) {
		t.Fatalf("unknown branch: got %v, want ErrBranchNotFound", err)
	}
	if err := tree.AddTool(tool, "root"); err != nil {
		t.Fatalf("AddTool: %v", err)
	}
	if err := tree.AddTool(tool, "root"); !errors.Is(err, domain.ErrToolExists) {
		t.Fatalf("duplicate: got %v, want ErrToolExists", err)
	}
	if err := tree.AddTool(unnamedTool{}, "root"); err == nil {
		t.Fatal("expected an error for a tool without a name")
	}
}

func TestRemoveBranchAndTool(t *testing.T) {
	tree := New("t")
	if err := tree.AddBranch("root", "x", AsRoot()); err != nil {
		t.Fatal(err)
	}
	if err := tree.AddTool(replyTool("answer", true), "root"); err != nil {
		t.Fatal(err)
	}

	if err := tree.RemoveTool("answer"); err != nil {
		t.Fatalf("RemoveTool: %v", err)
	}
	if tree.Tool("answer") != nil {
		t.Error("tool still registered after removal")
	}
	if got := len(tree.Branch("root").Tools); got != 0 {
		t.Errorf("branch still holds %d tools", got)
	}
	if err := tree.RemoveTool("answer"); !errors.Is(err, domain.ErrToolNotFound) {
		t.Fatalf("got %v, want ErrToolNotFound", err)
	}

	if err := tree.RemoveBranch("root"); err != nil {
		t.Fatalf("RemoveBranch: %v", err)
	}
	if tree.Branch("root") != nil {
		t.Error("branch still registered after removal")
	}
	if err := tree.RemoveBranch("root"); !errors.Is(err, domain.ErrBranchNotFound) {
		t.Fatalf("got %v, want ErrBranchNotFound", err)
	}
}

func TestInspectOrdering(t *testing.T) {
	tree := New("snapshot")
	if err := tree.AddBranch("root", "decide", AsRoot()); err != nil {
		t.Fatal(err)
	}
	if err := tree.AddBranch("deep", "nested", Under("root")); err != nil {
		t.Fatal(err)
	}
	if err := tree.AddBranch("zz-detached", "floating"); err != nil {
		t.Fatal(err)
	}
	if err := tree.AddBranch("aa-detached", "floating"); err != nil {
		t.Fatal(err)
	}
	if err := tree.AddTool(replyTool("answer", true), "deep", DependsOn("search")); err != nil {
		t.Fatal(err)
	}

	info := tree.Inspect()
	if info.Name != "snapshot" {
		t.Errorf("name = %q", info.Name)
	}

	var ids []string
	for _, b := range info.Branches {
		ids = append(ids, b.ID)
	}
	want := []string{"root", "deep", "aa-detached", "zz-detached"}
	if len(ids) != len(want) {
		t.Fatalf("ids = %v, want %v", ids, want)
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Fatalf("ids = %v, want %v", ids, want)
		}
	}

	deep := info.Branch("deep")
	if deep == nil || len(deep.Tools) != 1 {
		t.Fatal("deep branch tools missing from snapshot")
	}
	if got := deep.Tools[0].DependsOn; len(got) != 1 || got[0] != "search" {
		t.Errorf("DependsOn = %v", got)
	}
	if root := info.RootBranch(); root == nil || root.ID != "root" {
		t.Errorf("RootBranch = %+v", root)
	}
}

func TestReRootReplacesRoot(t *testing.T) {
	tree := New("t")
	if err := tree.AddBranch("first", "x", AsRoot()); err != nil {
		t.Fatal(err)
	}
	if err := tree.AddBranch("second", "y", AsRoot()); err != nil {
		t.Fatal(err)
	}

	info := tree.Inspect()
	if root := info.RootBranch(); root == nil || root.ID != "second" {
		t.Fatalf("RootBranch = %+v, want second", root)
	}
	if info.Branch("first").Root {
		t.Error("old root still flagged as root")
	}
}

func TestRunStreamsOrderedEvents(t *testing.T) {
	tree := New("orders")
	if err := tree.AddBranch("root", "answer the question", AsRoot()); err != nil {
		t.Fatal(err)
	}
	err := tree.AddTool(replyTool("answer", true,
		domain.Result{Data: map[string]any{"n": 1}, Summary: "counted"},
		domain.Response{Content: "one"},
	), "root")
	if err != nil {
		t.Fatal(err)
	}

	run := domain.NewRun("how many?")
	events := collect(t, tree.RunWith(context.Background(), run))

	want := []domain.Kind{domain.KindStatus, domain.KindResult, domain.KindResponse, domain.KindCompleted}
	got := kinds(events)
	if len(got) != len(want) {
		t.Fatalf("kinds = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("kinds = %v, want %v", got, want)
		}
	}

	completed := events[len(events)-1].(domain.Completed)
	if completed.Message != "orders" {
		t.Errorf("completion message = %q, want tree name", completed.Message)
	}
	if _, ok := run.Environment.Get("answer.result"); !ok {
		t.Error("result payload not merged into the environment")
	}
}

func TestRunIsDeterministic(t *testing.T) {
	tree := New("t")
	if err := tree.AddBranch("root", "x", AsRoot()); err != nil {
		t.Fatal(err)
	}
	if err := tree.AddBranch("sub", "y", Under("root")); err != nil {
		t.Fatal(err)
	}
	if err := tree.AddTool(replyTool("answer", true,
		domain.Result{Data: "payload"},
		domain.Response{Content: "done"},
	), "sub"); err != nil {
		t.Fatal(err)
	}

	first := kinds(collect(t, tree.Run(context.Background(), "hi")))
	second := kinds(collect(t, tree.Run(context.Background(), "hi")))
	if len(first) != len(second) {
		t.Fatalf("runs diverged: %v vs %v", first, second)
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("runs diverged: %v vs %v", first, second)
		}
	}
}

func TestRunUnavailableToolRecovers(t *testing.T) {
	tree := New("t")
	if err := tree.AddBranch("root", "x", AsRoot()); err != nil {
		t.Fatal(err)
	}
	tool := tools.MustNew(tools.Config{
		Name:     "gated",
		Terminal: true,
		Available: func(ctx context.Context, run *domain.Run) (bool, string) {
			return false, "credentials missing"
		},
		Run: func(ctx context.Context, run *domain.Run, emit domain.EmitFunc) error {
			t.Error("unavailable tool was executed")
			return nil
		},
	})
	if err := tree.AddTool(tool, "root"); err != nil {
		t.Fatal(err)
	}

	events := collect(t, tree.Run(context.Background(), "hi"))
	got := kinds(events)
	want := []domain.Kind{domain.KindStatus, domain.KindError, domain.KindCompleted}
	if len(got) != len(want) || got[1] != domain.KindError {
		t.Fatalf("kinds = %v, want %v", got, want)
	}
	ev := events[1].(domain.Error)
	if !ev.Recoverable || ev.ErrorKind != domain.ErrorKindAvailability {
		t.Errorf("availability error = %+v", ev)
	}
}

func TestRunGateSkipsSilently(t *testing.T) {
	tree := New("t")
	if err := tree.AddBranch("root", "x", AsRoot()); err != nil {
		t.Fatal(err)
	}
	tool := tools.MustNew(tools.Config{
		Name: "skipped",
		OnlyIf: func(ctx context.Context, run *domain.Run) bool {
			return false
		},
		Run: func(ctx context.Context, run *domain.Run, emit domain.EmitFunc) error {
			return emit(ctx, domain.Response{Content: "never"})
		},
	})
	if err := tree.AddTool(tool, "root"); err != nil {
		t.Fatal(err)
	}

	got := kinds(collect(t, tree.Run(context.Background(), "hi")))
	if len(got) != 2 || got[0] != domain.KindStatus || got[1] != domain.KindCompleted {
		t.Fatalf("kinds = %v, want [status completed]", got)
	}
}

func TestRunEmptyBranchIsDeadEnd(t *testing.T) {
	tree := New("t")
	if err := tree.AddBranch("root", "x", AsRoot()); err != nil {
		t.Fatal(err)
	}

	got := kinds(collect(t, tree.Run(context.Background(), "hi")))
	if len(got) != 2 || got[1] != domain.KindCompleted {
		t.Fatalf("kinds = %v, want [status completed]", got)
	}
}

func TestRunWithoutRootFails(t *testing.T) {
	tree := New("t")
	events := collect(t, tree.Run(context.Background(), "hi"))
	if len(events) != 1 {
		t.Fatalf("got %d events, want 1", len(events))
	}
	ev, ok := events[0].(domain.Error)
	if !ok || ev.Recoverable || ev.ErrorKind != domain.ErrorKindConfiguration {
		t.Fatalf("terminal event = %+v, want fatal configuration error", events[0])
	}
}

func TestRunRejectsUnknownDecision(t *testing.T) {
	tree := New("t", WithDecision(func(ctx context.Context, instruction string, options []string, run *domain.Run) (string, error) {
		return "bogus", nil
	}))
	if err := tree.AddBranch("root", "x", AsRoot()); err != nil {
		t.Fatal(err)
	}
	if err := tree.AddTool(replyTool("answer", true), "root"); err != nil {
		t.Fatal(err)
	}

	events := collect(t, tree.Run(context.Background(), "hi"))
	last, ok := events[len(events)-1].(domain.Error)
	if !ok || last.Recoverable {
		t.Fatalf("terminal event = %+v, want fatal error", events[len(events)-1])
	}
	if last.ErrorKind != domain.ErrorKindConfiguration {
		t.Errorf("error kind = %q, want configuration", last.ErrorKind)
	}
}

func TestRunToolFailureIsFatal(t *testing.T) {
	tree := New("t")
	if err := tree.AddBranch("root", "x", AsRoot()); err != nil {
		t.Fatal(err)
	}
	tool := tools.MustNew(tools.Config{
		Name: "broken",
		Run: func(ctx context.Context, run *domain.Run, emit domain.EmitFunc) error {
			return errors.New("backend exploded")
		},
	})
	if err := tree.AddTool(tool, "root"); err != nil {
		t.Fatal(err)
	}

	events := collect(t, tree.Run(context.Background(), "hi"))
	last, ok := events[len(events)-1].(domain.Error)
	if !ok || last.Recoverable {
		t.Fatalf("terminal event = %+v, want fatal error", events[len(events)-1])
	}
	if last.ErrorKind != domain.ErrorKindExecution {
		t.Errorf("error kind = %q, want execution", last.ErrorKind)
	}
}

func TestRunRecoversToolPanic(t *testing.T) {
	tree := New("t")
	if err := tree.AddBranch("root", "x", AsRoot()); err != nil {
		t.Fatal(err)
	}
	tool := tools.MustNew(tools.Config{
		Name: "panicky",
		Run: func(ctx context.Context, run *domain.Run, emit domain.EmitFunc) error {
			panic("nil map write")
		},
	})
	if err := tree.AddTool(tool, "root"); err != nil {
		t.Fatal(err)
	}

	events := collect(t, tree.Run(context.Background(), "hi"))
	last, ok := events[len(events)-1].(domain.Error)
	if !ok || last.Recoverable {
		t.Fatalf("terminal event = %+v, want fatal error", events[len(events)-1])
	}
}

func TestRunCancelClosesWithoutTerminal(t *testing.T) {
	tree := New("t")
	if err := tree.AddBranch("root", "x", AsRoot()); err != nil {
		t.Fatal(err)
	}
	tool := tools.MustNew(tools.Config{
		Name:     "slow",
		Terminal: true,
		Run: func(ctx context.Context, run *domain.Run, emit domain.EmitFunc) error {
			if err := emit(ctx, domain.Status{Message: "working"}); err != nil {
				return err
			}
			<-ctx.Done()
			return ctx.Err()
		},
	})
	if err := tree.AddTool(tool, "root"); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	events := tree.Run(ctx, "hi")

	<-events // branch status
	<-events // tool status
	cancel()

	var tail []domain.Event
	for ev := range events {
		tail = append(tail, ev)
	}
	for _, ev := range tail {
		if domain.Terminal(ev) {
			t.Fatalf("got terminal event %v after cancellation", ev.Kind())
		}
	}
}

func TestRunWithAppliesRunOptions(t *testing.T) {
	var sawOptions []string
	tree := New("t")
	if err := tree.AddBranch("root", "x", AsRoot()); err != nil {
		t.Fatal(err)
	}
	if err := tree.AddTool(replyTool("answer", true), "root"); err != nil {
		t.Fatal(err)
	}

	run := domain.NewRun("hi")
	events := tree.RunWith(context.Background(), run,
		WithCollections("docs", "tickets"),
		WithHistory(domain.Message{Role: "user", Content: "earlier"}),
		WithRunMetadata(map[string]any{"channel": "test"}),
		WithDecisionFunc(func(ctx context.Context, instruction string, options []string, r *domain.Run) (string, error) {
			sawOptions = options
			return options[0], nil
		}),
	)
	collect(t, events)

	if len(run.Collections) != 2 || run.Collections[0] != "docs" {
		t.Errorf("collections = %v", run.Collections)
	}
	if len(run.History) != 1 || run.History[0].Content != "earlier" {
		t.Errorf("history = %v", run.History)
	}
	if run.Metadata["channel"] != "test" {
		t.Errorf("metadata = %v", run.Metadata)
	}
	if len(sawOptions) != 1 || sawOptions[0] != "answer" {
		t.Errorf("decision options = %v", sawOptions)
	}
}

func TestExecuteImplementsEngine(t *testing.T) {
	tree := New("t")
	if err := tree.AddBranch("root", "x", AsRoot()); err != nil {
		t.Fatal(err)
	}
	if err := tree.AddTool(replyTool("answer", true, domain.Response{Content: "ok"}), "root"); err != nil {
		t.Fatal(err)
	}

	events := collect(t, tree.Execute(context.Background(), ports.RunSpec{Prompt: "hi"}))
	if len(events) == 0 || !domain.Terminal(events[len(events)-1]) {
		t.Fatalf("execute stream = %v", kinds(events))
	}
}
