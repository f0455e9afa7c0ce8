package services

import (
	"errors"
	"testing"

	"hotel-ledger/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCustomerServiceCreate(t *testing.T) {
	db := newTestDB(t)
	svc := NewCustomerService(db)
	ctx := t.Context()

	c := models.Customer{ID: 99, FullName: "  Pim Rattana ", Email: " PIM@Example.com "}
	require.NoError(t, svc.Create(ctx, &c))
	assert.NotZero(t, c.ID)
	assert.NotEqual(t, uint(99), c.ID)
	assert.Equal(t, "Pim Rattana", c.FullName)
	assert.Equal(t, "pim@example.com", c.Email)

	got, err := svc.GetByID(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, c.Email, got.Email)

	_, err = svc.GetByID(ctx, c.ID+100)
	assert.ErrorIs(t, err, ErrCustomerNotFound)
}

func TestCustomerServiceValidation(t *testing.T) {
	svc := NewCustomerService(newTestDB(t))

	for name, tc := range map[string]struct {
		in   models.Customer
		code string
	}{
		"missing name":  {in: models.Customer{Email: "a@b.co"}, code: "missing_name"},
		"invalid email": {in: models.Customer{FullName: "Ann", Email: "not-an-email"}, code: "invalid_email"},
	} {
		t.Run(name, func(t *testing.T) {
			err := svc.Create(t.Context(), &tc.in)
			var verr *ValidationError
			require.True(t, errors.As(err, &verr), "got %v", err)
			assert.Equal(t, tc.code, verr.Code)
		})
	}
}
