// Package cli holds the assembly helpers shared by the canopy commands:
// tree construction, store selection, logger setup and run-context
// loading.
package cli

import (
	"context"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/aretw0/canopy"
	"github.com/aretw0/canopy/internal/logging"
	loamAdapter "github.com/aretw0/canopy/pkg/adapters/loam"
	"github.com/aretw0/canopy/pkg/adapters/memory"
	redisAdapter "github.com/aretw0/canopy/pkg/adapters/redis"
	sqliteAdapter "github.com/aretw0/canopy/pkg/adapters/sqlite"
	"github.com/aretw0/canopy/pkg/domain"
	"github.com/aretw0/canopy/pkg/persistence/middleware"
	"github.com/aretw0/canopy/pkg/ports"
	"github.com/aretw0/canopy/pkg/tools"
)

// NewLogger builds the CLI logger from the global flags. The returned
// closer is a no-op unless a log file was requested.
func NewLogger(levelStr, file string) (*slog.Logger, func() error, error) {
	var level slog.Level
	switch strings.ToLower(levelStr) {
	case "debug":
		level = slog.LevelDebug
	case "", "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return nil, nil, fmt.Errorf("unknown log level %q", levelStr)
	}

	if file != "" {
		return logging.NewWithFile(level, file)
	}
	return logging.New(level), func() error { return nil }, nil
}

// BuildTree loads a tree definition from a loam directory, or assembles
// the built-in demo tree when path is empty.
func BuildTree(ctx context.Context, path string, decide domain.DecisionFunc, logger *slog.Logger) (*canopy.Tree, error) {
	if path == "" {
		return DemoTree(decide, logger)
	}

	opts := []loamAdapter.LoaderOption{
		loamAdapter.WithTools(DemoTools()),
		loamAdapter.WithLoaderLogger(logger),
	}
	if decide != nil {
		opts = append(opts, loamAdapter.WithDecision(decide))
	}
	loader, err := loamAdapter.Open(path, opts...)
	if err != nil {
		return nil, err
	}
	return loader.Load(ctx)
}

// DemoTools returns the tool implementations available to loaded trees
// and the demo tree: an environment echo and a terminal responder.
func DemoTools() map[string]domain.Tool {
	search := tools.MustNew(tools.Config{
		Name:        "search",
		Description: "Echoes the prompt back as a mock retrieval result",
		Run: func(ctx context.Context, run *domain.Run, emit domain.EmitFunc) error {
			return emit(ctx, domain.Result{
				Data:    map[string]any{"query": run.Prompt},
				Summary: "search completed",
			})
		},
	})
	answer := tools.MustNew(tools.Config{
		Name:        "answer",
		Description: "Produces the final response",
		Terminal:    true,
		Run: func(ctx context.Context, run *domain.Run, emit domain.EmitFunc) error {
			return emit(ctx, domain.Response{
				Content: fmt.Sprintf("You asked: %s", run.Prompt),
			})
		},
	})
	return map[string]domain.Tool{
		"search": search,
		"answer": answer,
	}
}

// DemoTree assembles the built-in two-branch demo tree used when no
// tree directory is supplied. Without an explicit strategy it routes by
// a keyword heuristic so both paths are reachable from the prompt.
func DemoTree(decide domain.DecisionFunc, logger *slog.Logger) (*canopy.Tree, error) {
	if decide == nil {
		decide = demoDecide
	}
	opts := []canopy.Option{canopy.WithLogger(logger), canopy.WithDecision(decide)}
	tree := canopy.New("demo", opts...)

	impls := DemoTools()
	if err := tree.AddBranch("root", "Decide how to handle the query.", canopy.AsRoot()); err != nil {
		return nil, err
	}
	if err := tree.AddBranch("lookup", "Look up supporting material.", canopy.Under("root")); err != nil {
		return nil, err
	}
	if err := tree.AddTool(impls["search"], "lookup"); err != nil {
		return nil, err
	}
	if err := tree.AddBranch("respond", "Answer the user directly.", canopy.Under("root")); err != nil {
		return nil, err
	}
	if err := tree.AddTool(impls["answer"], "respond", canopy.DependsOn("search")); err != nil {
		return nil, err
	}
	if err := tree.Validate(); err != nil {
		return nil, err
	}
	return tree, nil
}

// demoDecide routes lookup-ish prompts to the retrieval branch and
// everything else to the direct answer.
func demoDecide(ctx context.Context, instruction string, options []string, run *domain.Run) (string, error) {
	prompt := strings.ToLower(run.Prompt)
	wantsLookup := strings.Contains(prompt, "search") ||
		strings.Contains(prompt, "find") ||
		strings.Contains(prompt, "look up")

	for _, opt := range options {
		if wantsLookup && opt == "lookup" {
			return opt, nil
		}
		if !wantsLookup && opt == "respond" {
			return opt, nil
		}
	}
	return options[0], nil
}

// OpenStore builds the runlog store selected by --store, wrapped in the
// given middleware layers. The closer releases backing resources.
func OpenStore(kind, addr string, layers ...middleware.Middleware) (ports.RunStore, func() error, error) {
	var store ports.RunStore
	closer := func() error { return nil }

	switch strings.ToLower(kind) {
	case "", "memory":
		store = memory.NewStore()
	case "redis":
		if addr == "" {
			addr = "localhost:6379"
		}
		redisStore := redisAdapter.New(addr, "", 0)
		store, closer = redisStore, redisStore.Close
	case "sqlite":
		if addr == "" {
			addr = "canopy-runs.db"
		}
		sqliteStore, err := sqliteAdapter.New(addr)
		if err != nil {
			return nil, nil, err
		}
		store, closer = sqliteStore, sqliteStore.Close
	default:
		return nil, nil, fmt.Errorf("unknown store %q (want memory, redis or sqlite)", kind)
	}

	return middleware.Chain(store, layers...), closer, nil
}

// StoreLayers translates the --mask and --encrypt-key flags into store
// middleware. Masking is listed first so it runs before encryption on
// the way in; records reach the backing store masked, then sealed.
func StoreLayers(encryptKeyHex string, maskKeys []string) ([]middleware.Middleware, error) {
	var layers []middleware.Middleware
	if len(maskKeys) > 0 {
		layers = append(layers, middleware.NewPIIMiddleware(maskKeys))
	}
	if encryptKeyHex != "" {
		key, err := hex.DecodeString(encryptKeyHex)
		if err != nil {
			return nil, fmt.Errorf("decode encryption key: %w", err)
		}
		if len(key) != 32 {
			return nil, fmt.Errorf("encryption key must be 32 bytes (64 hex chars), got %d", len(key))
		}
		layers = append(layers, middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: key}))
	}
	return layers, nil
}

// runContextFile is the YAML shape accepted by --context.
type runContextFile struct {
	Collections []string         `yaml:"collections"`
	History     []domain.Message `yaml:"history"`
	Metadata    map[string]any   `yaml:"metadata"`
}

// LoadRunContext reads a YAML run-context file into run options.
func LoadRunContext(path string) ([]canopy.RunOption, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read run context: %w", err)
	}

	var rc runContextFile
	if err := yaml.Unmarshal(data, &rc); err != nil {
		return nil, fmt.Errorf("parse run context: %w", err)
	}

	var opts []canopy.RunOption
	if len(rc.Collections) > 0 {
		opts = append(opts, canopy.WithCollections(rc.Collections...))
	}
	if len(rc.History) > 0 {
		opts = append(opts, canopy.WithHistory(rc.History...))
	}
	if len(rc.Metadata) > 0 {
		opts = append(opts, canopy.WithRunMetadata(rc.Metadata))
	}
	return opts, nil
}
