// Package process holds the concrete process definitions built on the
// engine: subtree relocation and conditional property mutation, plus the
// persistence of finished reports into the repository itself.
//
// A definition validates its parameters (Init), registers ordered steps on
// an engine.Process (BuildProcess), and is driven end to end by Launch.
package process
