package tendril

import (
	"github.com/mchrisman/tendril/edit"
	"github.com/mchrisman/tendril/engine"
	"github.com/mchrisman/tendril/guard"
	"github.com/mchrisman/tendril/parser"
)

// SyntaxError is re-exported so callers can type-switch on it without
// importing parser directly.
type SyntaxError = parser.SyntaxError

// ValidationError is re-exported from parser.
type ValidationError = parser.ValidationError

// StepBudgetError is re-exported from engine.
type StepBudgetError = engine.StepBudgetError

// GuardTypeError wraps an arithmetic or comparison failure inside a where
// clause. It only ever prunes the branch that raised it: the engine drops
// it there, so it never reaches a caller as a returned error.
type GuardTypeError = guard.TypeError

// UnboundGuardError reports a where clause referencing a variable with no
// binding yet and no chance of one; like GuardTypeError this is branch-local.
type UnboundGuardError = guard.UnboundVarError

// EditShapeError is re-exported from edit so callers can type-switch on it
// without importing edit directly. It reports that a replacement's shape
// disagrees with the site it targets, e.g. assigning a scalar to an
// object-slice group.
type EditShapeError = edit.ShapeError
