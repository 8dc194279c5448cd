// Package analysis holds the static analyses the optimizer passes share:
// recognizing local and anonymous classes, a partial evaluator over
// method bodies, and resolution of the types that values passed to Gson
// denote.
package analysis
