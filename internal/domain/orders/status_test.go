package orders

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var allStatuses = []Status{
	StatusPending, StatusConfirmed, StatusPreparing,
	StatusOutForDelivery, StatusDelivered, StatusCancelled,
}

var allRoles = []Role{RoleBuyer, RoleSeller, RoleAdmin}

// legal is the complete set of (from, to, role) triples that must succeed.
// Everything else must be rejected.
var legal = map[[3]string]bool{
	{"pending", "confirmed", "seller"}:          true,
	{"pending", "confirmed", "admin"}:           true,
	{"confirmed", "preparing", "seller"}:        true,
	{"confirmed", "preparing", "admin"}:         true,
	{"preparing", "out_for_delivery", "seller"}: true,
	{"preparing", "out_for_delivery", "admin"}:  true,
	{"out_for_delivery", "delivered", "seller"}: true,
	{"out_for_delivery", "delivered", "admin"}:  true,
	{"pending", "cancelled", "buyer"}:           true,
	{"pending", "cancelled", "seller"}:          true,
	{"pending", "cancelled", "admin"}:           true,
}

func TestCanTransition_ExhaustiveMatrix(t *testing.T) {
	for _, from := range allStatuses {
		for _, to := range allStatuses {
			for _, role := range allRoles {
				want := legal[[3]string{string(from), string(to), string(role)}]
				got := CanTransition(role, from, to)
				assert.Equalf(t, want, got, "CanTransition(%s, %s -> %s)", role, from, to)
			}
		}
	}
}

func TestTerminalStatesHaveNoOutgoingEdges(t *testing.T) {
	for _, terminal := range []Status{StatusDelivered, StatusCancelled} {
		assert.True(t, Terminal(terminal))

		_, ok := Next(terminal)
		assert.Falsef(t, ok, "%s must have no forward successor", terminal)

		for _, to := range allStatuses {
			for _, role := range allRoles {
				assert.Falsef(t, CanTransition(role, terminal, to),
					"no role may leave %s (tried %s -> %s as %s)", terminal, terminal, to, role)
			}
		}
	}
}

func TestNext_SingleStepChain(t *testing.T) {
	chain := []Status{StatusPending, StatusConfirmed, StatusPreparing, StatusOutForDelivery, StatusDelivered}

	for i := 0; i < len(chain)-1; i++ {
		next, ok := Next(chain[i])
		require.True(t, ok)
		assert.Equal(t, chain[i+1], next)
	}
}

func TestParseStatus(t *testing.T) {
	s, err := ParseStatus("out_for_delivery")
	require.NoError(t, err)
	assert.Equal(t, StatusOutForDelivery, s)

	_, err = ParseStatus("shipped")
	assert.Error(t, err)

	_, err = ParseStatus("")
	assert.Error(t, err)
}

func TestDraft_TotalMatchesLines(t *testing.T) {
	lines := []Line{
		{ProductID: 1, Name: "Apples", UnitPriceCents: 1000, Quantity: 2},
		{ProductID: 2, Name: "Bread", UnitPriceCents: 500, Quantity: 1},
	}
	d := NewDraft(10, "Green Grocer", 7, lines)

	assert.Equal(t, int64(2500), d.TotalCents)
	require.NoError(t, d.Validate())

	d.TotalCents = 9999
	assert.Error(t, d.Validate(), "a drifted total must fail validation")

	empty := NewDraft(10, "Green Grocer", 7, nil)
	assert.Error(t, empty.Validate())
}
