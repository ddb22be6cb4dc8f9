package postgres

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"
)

func TestIsUniqueViolation(t *testing.T) {
	pairViolation := &pgconn.PgError{Code: "23505", ConstraintName: "enrollments_consumer_activity_key"}

	tests := []struct {
		name       string
		err        error
		constraint string
		want       bool
	}{
		{name: "enrollment pair", err: pairViolation, constraint: enrollmentPairKey, want: true},
		{name: "wrapped", err: fmt.Errorf("insert: %w", pairViolation), constraint: enrollmentPairKey, want: true},
		{name: "any constraint", err: pairViolation, constraint: "", want: true},
		{name: "other constraint", err: &pgconn.PgError{Code: "23505", ConstraintName: "users_email_key"}, constraint: enrollmentPairKey, want: false},
		{name: "other code", err: &pgconn.PgError{Code: "23503", ConstraintName: "enrollments_consumer_activity_key"}, constraint: enrollmentPairKey, want: false},
		{name: "not a postgres error", err: errors.New("boom"), constraint: enrollmentPairKey, want: false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, isUniqueViolation(tc.err, tc.constraint))
		})
	}
}

func TestIsForeignKeyViolation(t *testing.T) {
	require.True(t, isForeignKeyViolation(&pgconn.PgError{Code: "23503"}))
	require.False(t, isForeignKeyViolation(&pgconn.PgError{Code: "23505"}))
	require.False(t, isForeignKeyViolation(errors.New("boom")))
}
