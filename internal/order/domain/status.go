package domain

import "fmt"

type Status string

const (
	StatusNew       Status = "new"
	StatusAccepted  Status = "accepted"
	StatusPreparing Status = "preparing"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

// transitions is the full legal transition graph. Statuses absent as keys
// or with an empty set are terminal.
var transitions = map[Status][]Status{
	StatusNew:       {StatusAccepted, StatusCancelled},
	StatusAccepted:  {StatusPreparing, StatusCancelled},
	StatusPreparing: {StatusCompleted, StatusCancelled},
}

func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusNew, StatusAccepted, StatusPreparing, StatusCompleted, StatusCancelled:
		return Status(s), nil
	}
	return "", fmt.Errorf("unknown order status %q", s)
}

// CanTransitionTo reports whether moving from s to the target status is
// legal. Terminal statuses admit no transition.
func (s Status) CanTransitionTo(to Status) bool {
	for _, next := range transitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

func (s Status) Terminal() bool {
	return len(transitions[s]) == 0
}
