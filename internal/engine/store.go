package engine

import (
	"context"
	"time"

	"github.com/roach88/goalctl/internal/goal"
	"github.com/roach88/goalctl/internal/scope"
)

// Store is the backing store the orchestrator mutates.
//
// Every method is a fallible call. Domain conflicts are reported as a
// *goal.ConflictError somewhere in the returned error's chain.
type Store interface {
	CreateGoal(ctx context.Context, g goal.Goal) (goal.Goal, error)
	UpdateGoal(ctx context.Context, id int64, g goal.Goal) (goal.Goal, error)
	DeleteGoal(ctx context.Context, id int64) error
	CompleteGoal(ctx context.Context, id int64, completed bool) (bool, error)

	CreateEvent(ctx context.Context, req goal.EventRequest) (goal.Goal, error)
	UpdateEvent(ctx context.Context, id int64, fields goal.EventFields) (goal.Goal, error)
	DeleteEvent(ctx context.Context, id int64, deleteFuture bool) error
	CompleteEvent(ctx context.Context, id int64) (goal.CompletionResult, error)

	// UpdateRoutineEvent moves the occurrence and, for future and all, the
	// matching occurrences of its routine to the time of day of t. The
	// routine's routine_time is re-anchored.
	UpdateRoutineEvent(ctx context.Context, id int64, t time.Time, s scope.Scope) ([]goal.Goal, error)
	UpdateRoutineEventProperties(ctx context.Context, id int64, fields goal.EventFields, s scope.Scope) ([]goal.Goal, error)
	RecomputeRoutineFuture(ctx context.Context, routineID int64) error

	CreateRelationship(ctx context.Context, parentID, childID int64, kind goal.EdgeKind) error
	DeleteRelationship(ctx context.Context, parentID, childID int64, kind goal.EdgeKind) error

	FetchAllGoals(ctx context.Context) ([]goal.Goal, error)
	FetchRelationshipEdges(ctx context.Context) ([]goal.Edge, error)
	FetchGoalEventsAndTotalDuration(ctx context.Context, taskID int64) (goal.TaskEvents, error)
}
