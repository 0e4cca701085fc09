package domain

import "time"

// ActorType distinguishes the bootstrap path from a real operator (spec.md
// §3.A, original_source bootstrap.rs).
type ActorType string

const (
	ActorTypeOperator  ActorType = "operator"
	ActorTypeBootstrap ActorType = "bootstrap"
)

// Actor identifies who performed an action.
type Actor struct {
	ID          string
	Type        ActorType
	OperatorID  string
	Login       string
	DisplayName string
}

// BootstrapActor is the fixed actor recorded for the very first CreateOperator
// call, before any operator row exists.
var BootstrapActor = Actor{ID: "bootstrap", Type: ActorTypeBootstrap}

// Cause records why an action happened — usually the originating command,
// but distinct from Action so a future "triggered by CSV import row 7" style
// cause can be attached without changing Action's shape.
type Cause struct {
	ID          string
	Description string
}

// Action names the command discriminator and carries optional free-form
// details for display.
type Action struct {
	Name    string
	Details map[string]any
}

// AuditEvent is the immutable, monotonically-ordered record of a
// state-changing operation.
type AuditEvent struct {
	EventID        int64
	BidYearID      *string
	AreaID         *string
	Actor          Actor
	Cause          Cause
	Action         Action
	BeforeSnapshot string
	AfterSnapshot  string
	CreatedAt      time.Time
}

// Snapshot-worthy action names (spec.md §4.8 "Snapshot policy").
const (
	ActionCheckpoint = "Checkpoint"
	ActionFinalize   = "Finalize"
	ActionRollback   = "Rollback"
)

// RequiresFullSnapshot reports whether action is one of the three
// heavyweight operations that get a full State row in addition to the
// audit event's after_snapshot string.
func RequiresFullSnapshot(action string) bool {
	switch action {
	case ActionCheckpoint, ActionFinalize, ActionRollback:
		return true
	default:
		return false
	}
}
