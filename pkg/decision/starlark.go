package decision

import (
	"context"
	"fmt"
	"sort"

	"go.starlark.net/starlark"

	"github.com/aretw0/canopy/pkg/domain"
)

// scriptFunction is the function a decision script must declare.
const scriptFunction = "decide"

// Scripted builds a strategy from a Starlark script. The script declares:
//
//	def decide(instruction, options, prompt, environment):
//	    return options[0]
//
// and is called once per decision point with the branch instruction, the
// option names, the run prompt and a snapshot of the run Environment. The
// return value must be a string (membership in options is enforced by the
// engine). Script errors surface as decision errors and fail the run.
//
// The script is parsed and executed once at construction time; each
// decision call runs on its own starlark.Thread, so the strategy is safe
// for sequential runs and for concurrent runs of independent trees.
func Scripted(name string, src []byte) (domain.DecisionFunc, error) {
	globals, err := starlark.ExecFile(&starlark.Thread{Name: "load:" + name}, name, src, nil)
	if err != nil {
		return nil, fmt.Errorf("load decision script %s: %w", name, err)
	}
	fn, ok := globals[scriptFunction]
	if !ok {
		return nil, fmt.Errorf("decision script %s does not declare %s()", name, scriptFunction)
	}
	callable, ok := fn.(starlark.Callable)
	if !ok {
		return nil, fmt.Errorf("decision script %s: %s is %s, not a function", name, scriptFunction, fn.Type())
	}

	return func(ctx context.Context, instruction string, options []string, run *domain.Run) (string, error) {
		opts := make([]starlark.Value, len(options))
		for i, o := range options {
			opts[i] = starlark.String(o)
		}

		prompt := ""
		var env *starlark.Dict
		if run != nil {
			prompt = run.Prompt
			env = environmentDict(run)
		} else {
			env = starlark.NewDict(0)
		}

		args := starlark.Tuple{
			starlark.String(instruction),
			starlark.NewList(opts),
			starlark.String(prompt),
			env,
		}

		thread := &starlark.Thread{Name: "decide:" + name}
		result, err := starlark.Call(thread, callable, args, nil)
		if err != nil {
			return "", fmt.Errorf("decision script %s: %w", name, err)
		}
		choice, ok := starlark.AsString(result)
		if !ok {
			return "", fmt.Errorf("decision script %s: %s returned %s, want string", name, scriptFunction, result.Type())
		}
		return choice, nil
	}, nil
}

func environmentDict(run *domain.Run) *starlark.Dict {
	snapshot := run.Environment.Snapshot()
	keys := make([]string, 0, len(snapshot))
	for k := range snapshot {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	dict := starlark.NewDict(len(snapshot))
	for _, k := range keys {
		// SetKey on a fresh dict with string keys cannot fail.
		_ = dict.SetKey(starlark.String(k), toStarlark(snapshot[k]))
	}
	return dict
}

// toStarlark converts an Environment value into a Starlark value. Values
// outside the JSON-ish shapes tools normally produce degrade to their
// string form rather than failing the decision.
func toStarlark(v any) starlark.Value {
	switch val := v.(type) {
	case nil:
		return starlark.None
	case bool:
		return starlark.Bool(val)
	case string:
		return starlark.String(val)
	case int:
		return starlark.MakeInt(val)
	case int64:
		return starlark.MakeInt64(val)
	case float64:
		return starlark.Float(val)
	case []any:
		items := make([]starlark.Value, len(val))
		for i, item := range val {
			items[i] = toStarlark(item)
		}
		return starlark.NewList(items)
	case map[string]any:
		dict := starlark.NewDict(len(val))
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			_ = dict.SetKey(starlark.String(k), toStarlark(val[k]))
		}
		return dict
	default:
		return starlark.String(fmt.Sprintf("%v", val))
	}
}
