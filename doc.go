// Package orchestrate provides a provider-agnostic workflow orchestration
// engine for AI agent pipelines. A workflow is a named, ordered sequence of
// steps; each step invokes an agent against an input and records the
// exchange on a conversation thread.
//
// Orchestrate is designed as a library, not a service. Import it, configure
// a store backend, and drive workflows through a Provider.
//
// # Quick Start
//
//	p := workflow.NewProvider(memory.New(), invoker, threads)
//	wf, err := p.Create(ctx, workflow.CreateParams{Name: "demo"})
//	wf, err = p.Execute(ctx, wf.ID)
//
// # Architecture
//
// The workflow package owns the state machine and delegates all persistence
// to a workflow.Store. One store implementation exists per backend: an
// in-process map (store/memory), an embedded relational database
// (store/sqlite), and a remote key-value/sorted-set server (store/redis).
// The engine package selects and wires a backend from configuration,
// falling back to the in-process store when the configured backend cannot
// be reached.
//
// All entity IDs use TypeID — type-prefixed, K-sortable, UUIDv7-based,
// compile-time safe identifiers.
package orchestrate
