package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAssignIDsKeepsCallerIDs(t *testing.T) {
	loads := []Load{{ID: 2}, {}, {}, {ID: 5}}
	AssignIDs(loads)

	assert.Equal(t, []int{2, 1, 3, 5}, []int{loads[0].ID, loads[1].ID, loads[2].ID, loads[3].ID})
}

func TestValidateLoads(t *testing.T) {
	valid := Load{ID: 1, PickupCity: "A", DropoffCity: "B", Rate: 0.1, Weight: 1000}
	require.NoError(t, ValidateLoads([]Load{valid}))

	err := ValidateLoads(nil)
	require.ErrorIs(t, err, ErrNoLoads)

	bad := []Load{
		valid,
		{ID: 1, PickupCity: " ", DropoffCity: "B", Weight: 0, Rate: -1},
	}
	err = ValidateLoads(bad)
	require.Error(t, err)
	assert.True(t, IsValidation(err))
	assert.ErrorIs(t, err, ErrMissingCity)
	assert.ErrorIs(t, err, ErrInvalidWeight)
	assert.ErrorIs(t, err, ErrInvalidRate)
	assert.ErrorIs(t, err, ErrDuplicateLoadID)

	var ve *ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, 1, ve.Index)
}

func TestRequiredIDs(t *testing.T) {
	loads := []Load{{ID: 1}, {ID: 3, Required: true}, {ID: 4, Required: true}}
	assert.Equal(t, []int{3, 4}, RequiredIDs(loads))
}
