// Package tools builds domain.Tool implementations from plain functions.
//
// Most hosts do not need a struct per capability; they need to hang a
// function, a name and a couple of flags on the tool contract. tools.New
// does exactly that, with nil predicates defaulting to permissive:
//
//	echo, err := tools.New(tools.Config{
//	    Name:     "echo",
//	    Terminal: true,
//	    Run: func(ctx context.Context, run *domain.Run, emit domain.EmitFunc) error {
//	        return emit(ctx, domain.Response{Content: run.Prompt})
//	    },
//	})
//
// For tools that wrap external processes, see pkg/adapters/process.
package tools
