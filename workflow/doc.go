// Package workflow defines workflow and step records, the persistence
// contract, the external agent and thread capabilities, and the Provider
// that drives the workflow state machine.
//
// A workflow is a linear sequence of steps executed strictly in order.
// Each step invokes an agent against an input and logs the exchange on a
// conversation thread. Execution is caller-driven: Provider.Execute runs
// the loop synchronously and suspends only at external call boundaries.
//
// Pause is cooperative. Provider.Pause flips the persisted status and the
// running loop observes it before starting the next step; an in-flight
// agent invocation is never interrupted.
package workflow
