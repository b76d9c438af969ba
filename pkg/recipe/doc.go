// Package recipe defines the recipe record, the unit of input to the graph
// builder, together with the readers and writers that produce records from
// files.
//
// # Records
//
// A [Record] names a product and the ingredients needed to make it:
//
//	{"product": "Circuit Board", "ingredients": {"Iron Ingot": 2, "Copper Ingot": 1}}
//
// [Ingredients] keeps the order in which ingredients were first seen. A
// duplicate key overwrites the earlier quantity in place, which is what a
// plain map assignment would do, but the position of the first occurrence is
// kept so graph construction is deterministic.
//
// # Formats
//
// Three file formats are understood, selected by extension:
//
//   - .json: an array of records
//   - .yaml, .yml: a sequence of records
//   - .csv, .txt: raw export lines, one product per line (read-only)
//
// Raw export lines look like this:
//
//	Circuit Board,"2- Iron Ingot,1- Copper Ingot"
//
// Malformed raw lines are skipped and reported as MALFORMED_RECORD errors
// alongside the records that did parse. Structural failures (unreadable
// files, invalid JSON) abort the read with a RESOURCE_ERROR or
// INVALID_FORMAT error.
package recipe
