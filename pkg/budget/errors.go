package budget

import "errors"

// ErrBudgetOverflow is returned when compression and eviction have both
// run their course and the context still exceeds its available budget.
// It is fatal for the current turn.
var ErrBudgetOverflow = errors.New("budget: context cannot be fit into available tokens")
