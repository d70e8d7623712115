package runtime

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aretw0/canopy/internal/logging"
	"github.com/aretw0/canopy/pkg/domain"
)

// Engine drives one traversal of an assembled tree, producing the ordered
// event stream of a run. It holds no per-run state; everything mutable lives
// on the domain.Run threaded through the traversal.
type Engine struct {
	treeName string
	root     *domain.Branch
	decide   domain.DecisionFunc
	logger   *slog.Logger
}

// New builds an engine for one tree. root may be nil (the run then fails
// with a configuration error); decide may be nil (first-option policy);
// logger may be nil (no-op).
func New(treeName string, root *domain.Branch, decide domain.DecisionFunc, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Engine{treeName: treeName, root: root, decide: decide, logger: logger}
}

// Run starts the traversal for run and returns its event stream.
//
// The channel is unbuffered: every event must be received before the engine
// proceeds, so a slow consumer stalls the entire run and event order is
// exactly production order. The channel closes after the terminal event
// (Completed, or a non-recoverable Error), or without one when ctx is
// canceled before the run finishes.
func (e *Engine) Run(ctx context.Context, run *domain.Run) <-chan domain.Event {
	out := make(chan domain.Event)

	emit := func(ctx context.Context, ev domain.Event) error {
		select {
		case out <- ev:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	go func() {
		defer close(out)

		err := e.execute(ctx, run, emit)
		switch {
		case err == nil:
			_ = emit(ctx, domain.Completed{Message: e.treeName})
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			// The consumer abandoned the stream; there is nobody left to
			// deliver a terminal event to.
			e.logger.DebugContext(ctx, "run canceled", "run_id", run.ID)
		default:
			e.logger.ErrorContext(ctx, "run failed", "run_id", run.ID, "err", err)
			_ = emit(ctx, domain.Error{
				Message:     err.Error(),
				ErrorKind:   domain.KindOf(err),
				Recoverable: false,
				Metadata:    map[string]any{"tree": e.treeName},
			})
		}
	}()

	return out
}

// execute runs the whole traversal, converting panics from tool or strategy
// code into ordinary errors so the caller can close the run with a single
// terminal Error event.
func (e *Engine) execute(ctx context.Context, run *domain.Run, emit domain.EmitFunc) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("recovered panic: %v", r)
		}
	}()

	if e.root == nil {
		return domain.ErrNoRoot
	}
	return e.executeBranch(ctx, e.root, run, emit)
}

// executeBranch runs one branch: a status event, a decision, then either the
// chosen tool or recursion into the chosen child branch. One decision per
// branch: returning is the stop signal, so a terminal tool (or any stop) ends
// the whole traversal as the return unwinds through the enclosing levels.
func (e *Engine) executeBranch(ctx context.Context, b *domain.Branch, run *domain.Run, emit domain.EmitFunc) error {
	if err := emit(ctx, domain.Status{Message: b.StatusMessage}); err != nil {
		return err
	}

	options := b.Options()
	if len(options) == 0 {
		// An empty branch is a silent dead end, not a failure.
		e.logger.WarnContext(ctx, "branch has no options", "branch", b.ID)
		return nil
	}

	node := DecisionNode{Instruction: b.Instruction, Options: options, Decide: e.decide}
	choice, err := node.Choose(ctx, run)
	if err != nil {
		return fmt.Errorf("branch %s: %w", b.ID, err)
	}
	e.logger.DebugContext(ctx, "option chosen", "branch", b.ID, "option", choice)

	// Tool names resolve before child branch ids.
	if tool := b.Tool(choice); tool != nil {
		return e.invokeTool(ctx, tool, run, emit)
	}
	if child := b.Child(choice); child != nil {
		return e.executeBranch(ctx, child, run, emit)
	}

	// Choose validated membership, so this only happens when the branch
	// structures disagree with the option list.
	return fmt.Errorf("branch %s: option %q: %w", b.ID, choice, domain.ErrUnknownOption)
}

// invokeTool gates and executes one tool, merging mergeable payloads into
// the Environment before each event is forwarded.
func (e *Engine) invokeTool(ctx context.Context, tool domain.Tool, run *domain.Run, emit domain.EmitFunc) error {
	if ok, reason := tool.Available(ctx, run); !ok {
		e.logger.InfoContext(ctx, "tool unavailable", "tool", tool.Name(), "reason", reason)
		ev := domain.Error{
			Message:     fmt.Sprintf("tool %s unavailable: %s", tool.Name(), reason),
			ErrorKind:   domain.ErrorKindAvailability,
			Recoverable: true,
		}
		return emit(ctx, ev)
	}

	if !tool.ShouldRun(ctx, run) {
		e.logger.DebugContext(ctx, "tool skipped", "tool", tool.Name())
		return nil
	}

	key := tool.Name() + ".result"
	toolEmit := func(ctx context.Context, ev domain.Event) error {
		// The write lands before the event reaches the consumer, so code
		// reacting to an event can already observe the Environment update.
		if dc, ok := ev.(domain.DataCarrier); ok {
			run.Environment.Add(key, dc.EventData())
		}
		return emit(ctx, ev)
	}

	if err := tool.Execute(ctx, run, toolEmit); err != nil {
		return fmt.Errorf("tool %s: %w", tool.Name(), err)
	}
	return nil
}
