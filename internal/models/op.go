package models

// OpKind tags every storage mutation with its origin, so the event bus can
// tell user actions apart from the orchestrator quietly reconciling state.
type OpKind string

const (
	OpCreate  OpKind = "create"
	OpUpdate  OpKind = "update"
	OpDelete  OpKind = "delete"
	OpRestore OpKind = "restore"

	// Background-origin operations. These never trigger a visible refresh.
	OpHydrate         OpKind = "hydrate"
	OpServerCreate    OpKind = "server-create"
	OpServerOverwrite OpKind = "server-overwrite"
)

// Background reports whether the operation originated from the sync layer
// rather than from a user action.
func (k OpKind) Background() bool {
	switch k {
	case OpHydrate, OpServerCreate, OpServerOverwrite:
		return true
	}
	return false
}
