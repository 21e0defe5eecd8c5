// Package harness runs view scenarios: it saves facts into a fact graph,
// projects them through a compiled view and checks the projected value.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: scenario_name
//	description: "What this scenario validates"
//	specs:
//	  - ../views/home.cue
//	view: Home
//	root: home
//	facts:
//	  - alias: home
//	    type: Application.Root
//	    fields: { identifier: home }
//	steps:
//	  - save:
//	      - alias: a
//	        type: Application.Item
//	        fields: { createdAt: "2024-01-01" }
//	        predecessors: { root: [home] }
//	    expect:
//	      - type: count
//	        path: items
//	        count: 1
//	  - start: other
//	  - stop: true
//	assertions:
//	  - type: equals
//	    path: items[0].createdAt
//	    value: "2024-01-01"
//
// Spec paths are relative to the scenario file. Predecessors name facts by
// alias; an alias must be declared before it is referenced.
//
// # Assertion Types
//
//   - equals: the value at path equals value
//   - count: the list at path has count entries
//   - order: the field of each entry of the list at path, in order
//   - absent: path does not resolve
//
// Paths are dotted field names with optional list indexes, such as
// "recycleBin.deletedItems[0].createdAt". The empty path is the whole view.
//
// # Hash Aliases
//
// Fact hashes appearing in the projected view are replaced by "@alias"
// before assertions and golden comparison, so expectations stay readable
// and golden files do not depend on hash values.
//
// # Deterministic Testing
//
// Each run uses a fresh fact log (in-memory SQLite unless WithDatabase is
// given), arrival numbering that resumes after the log's last seq, and
// sequential subscription IDs.
// Delivery is synchronous, so every step's snapshot is reproducible.
package harness
