package session

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_GetUnknownUser(t *testing.T) {
	store := NewStore()

	sel := store.Get(42)

	assert.Equal(t, StateIdle, sel.State)
	assert.Zero(t, sel.EmailAttempts)
}

func TestStore_SetReturnsCopy(t *testing.T) {
	store := NewStore()
	store.Set(1, Selection{State: StateSelectingPlan, ConnectionType: "vless"})

	sel := store.Get(1)
	sel.ConnectionType = "mutated"

	again := store.Get(1)
	assert.Equal(t, "vless", again.ConnectionType)
}

func TestStore_EmailAttemptLimit(t *testing.T) {
	store := NewStore()
	store.Set(7, Selection{State: StateAwaitingEmail})

	for i := 0; i < MaxEmailAttempts; i++ {
		sel := store.Update(7, func(s *Selection) { s.EmailAttempts++ })
		require.LessOrEqual(t, sel.EmailAttempts, MaxEmailAttempts)
	}

	sel := store.Update(7, func(s *Selection) {
		s.EmailAttempts++
		if s.EmailAttempts > MaxEmailAttempts {
			s.State = StateFailed
			s.Reason = ReasonRateLimited
		}
	})

	assert.Equal(t, StateFailed, sel.State)
	assert.Equal(t, ReasonRateLimited, sel.Reason)
}

func TestStore_Reset(t *testing.T) {
	store := NewStore()
	store.Set(3, Selection{State: StateAwaitingPayment, PlanID: "basic"})

	store.Reset(3)

	sel := store.Get(3)
	assert.Equal(t, StateIdle, sel.State)
	assert.Empty(t, sel.PlanID)
}

func TestStore_Fail(t *testing.T) {
	store := NewStore()
	store.Set(9, Selection{State: StateAwaitingPayment})

	sel := store.Fail(9, ReasonPanelUnavailable)

	assert.Equal(t, StateFailed, sel.State)
	assert.Equal(t, ReasonPanelUnavailable, sel.Reason)
}

func TestStore_ConcurrentUpdates(t *testing.T) {
	store := NewStore()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			store.Update(1, func(s *Selection) { s.EmailAttempts++ })
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, store.Get(1).EmailAttempts)
}
