package actor

import "errors"

var (
	// ErrConfig marks a scripting or data bug: a one-sided turn chore pair,
	// a talk index outside 1..10, a chore outside its costume's table, a
	// shadow edit with no slot selected. The calling command should abort.
	ErrConfig = errors.New("actor: invalid configuration")

	// ErrInconsistentState is returned when a save stream refers to costumes,
	// scenes or sectors that do not exist at restore time.
	ErrInconsistentState = errors.New("actor: inconsistent saved state")
)
