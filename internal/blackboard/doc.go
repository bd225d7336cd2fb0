// Package blackboard implements the shared state store the pipeline stages
// communicate through.
//
// A Board holds a fixed set of declared keys behind one mutex. Each key has a
// single owning stage that writes it; every other stage only reads. An empty
// entry is a first-class state: a stage that sees its input empty clears its
// own output so emptiness propagates down the chain. There is no history,
// the last write wins.
//
// Stage code should use the typed accessors returned by Entries rather than
// the untyped Set/Get methods.
package blackboard
