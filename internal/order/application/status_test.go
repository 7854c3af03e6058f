package application

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campuseats/ordering/internal/order/domain"
)

func seedOrder(t *testing.T, repo *fakeRepo) domain.Order {
	t.Helper()
	ingress := NewIngress(discard(), repo)
	o, err := ingress.Checkout(context.Background(), customer(), validItems(), d("25.00"), "")
	require.NoError(t, err)
	return o
}

func TestTransitionRequiresElevatedRole(t *testing.T) {
	repo := newFakeRepo()
	o := seedOrder(t, repo)
	engine := NewStatusEngine(discard(), repo)
	ctx := context.Background()

	_, err := engine.Transition(ctx, nil, o.ID, domain.StatusAccepted)
	assert.ErrorIs(t, err, ErrAuthRequired)

	_, err = engine.Transition(ctx, customer(), o.ID, domain.StatusAccepted)
	assert.ErrorIs(t, err, ErrForbidden)

	got, err := repo.Get(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusNew, got.Status, "rejected transitions leave the order unchanged")
}

func TestTransitionHappyPathThroughLifecycle(t *testing.T) {
	repo := newFakeRepo()
	o := seedOrder(t, repo)
	engine := NewStatusEngine(discard(), repo)
	ctx := context.Background()

	for _, to := range []domain.Status{domain.StatusAccepted, domain.StatusPreparing, domain.StatusCompleted} {
		updated, err := engine.Transition(ctx, operator(), o.ID, to)
		require.NoError(t, err)
		assert.Equal(t, to, updated.Status)
	}

	// Terminal: nothing is reachable from completed.
	_, err := engine.Transition(ctx, operator(), o.ID, domain.StatusPreparing)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	got, err := repo.Get(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, got.Status)
}

func TestTransitionRejectsIllegalPairs(t *testing.T) {
	ctx := context.Background()

	illegal := []struct{ from, to domain.Status }{
		{domain.StatusNew, domain.StatusPreparing},
		{domain.StatusNew, domain.StatusCompleted},
		{domain.StatusAccepted, domain.StatusCompleted},
		{domain.StatusPreparing, domain.StatusAccepted},
		{domain.StatusCompleted, domain.StatusPreparing},
		{domain.StatusCancelled, domain.StatusNew},
	}
	for _, tc := range illegal {
		repo := newFakeRepo()
		o := seedOrder(t, repo)
		forced := repo.headers[o.ID]
		forced.Status = tc.from
		repo.headers[o.ID] = forced

		engine := NewStatusEngine(discard(), repo)
		_, err := engine.Transition(ctx, operator(), o.ID, tc.to)
		assert.ErrorIs(t, err, domain.ErrInvalidTransition, "%s -> %s", tc.from, tc.to)

		got, _ := repo.Get(ctx, o.ID)
		assert.Equal(t, tc.from, got.Status, "%s -> %s must not mutate", tc.from, tc.to)
	}
}

func TestTransitionUnknownOrder(t *testing.T) {
	engine := NewStatusEngine(discard(), newFakeRepo())
	_, err := engine.Transition(context.Background(), operator(), "nope", domain.StatusAccepted)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestTransitionLostRaceReturnsConflict(t *testing.T) {
	repo := newFakeRepo()
	o := seedOrder(t, repo)
	repo.conflictOnUpdate = true

	engine := NewStatusEngine(discard(), repo)
	_, err := engine.Transition(context.Background(), operator(), o.ID, domain.StatusAccepted)
	assert.ErrorIs(t, err, domain.ErrStatusConflict)
}

func TestTransitionEmitsChangeEvent(t *testing.T) {
	repo := newFakeRepo()
	o := seedOrder(t, repo)
	repo.events = nil

	engine := NewStatusEngine(discard(), repo)
	_, err := engine.Transition(context.Background(), operator(), o.ID, domain.StatusAccepted)
	require.NoError(t, err)
	assert.Equal(t, []string{domain.EventOrderChanged}, repo.events)
}
