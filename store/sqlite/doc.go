// Package sqlite implements store.Store on an embedded SQLite database via
// the Bun ORM. Workflows and steps are separate tables; steps reference
// their workflow by id and carry an explicit position column so insertion
// order survives round trips.
//
// Usage:
//
//	db, err := sqlite.Open("orchestrate.db")
//	s := sqlite.New(db)
//	if err := s.Migrate(ctx); err != nil { ... }
package sqlite
