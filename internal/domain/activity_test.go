package domain_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"example.com/booking/internal/domain"
)

func TestAvailabilityIsClosed(t *testing.T) {
	tests := []struct {
		value  domain.Availability
		closed bool
	}{
		{"false", true},
		{"cerrada", true},
		{" CERRADA ", true},
		{"Closed", true},
		{"", false},
		{"true", false},
		{"abierta", false},
		{"closed soon", false},
	}
	for _, tc := range tests {
		require.Equal(t, tc.closed, tc.value.IsClosed(), "value %q", tc.value)
	}
}

func TestAvailabilityUnmarshalJSON(t *testing.T) {
	var payload struct {
		Availability domain.Availability `json:"availability"`
	}

	require.NoError(t, json.Unmarshal([]byte(`{"availability": false}`), &payload))
	require.Equal(t, domain.Availability("false"), payload.Availability)
	require.True(t, payload.Availability.IsClosed())

	require.NoError(t, json.Unmarshal([]byte(`{"availability": true}`), &payload))
	require.False(t, payload.Availability.IsClosed())

	require.NoError(t, json.Unmarshal([]byte(`{"availability": "Cerrada"}`), &payload))
	require.Equal(t, domain.Availability("Cerrada"), payload.Availability)

	require.NoError(t, json.Unmarshal([]byte(`{"availability": null}`), &payload))
	require.Empty(t, payload.Availability)

	require.Error(t, json.Unmarshal([]byte(`{"availability": 3}`), &payload))
}

func TestValidateSchedule(t *testing.T) {
	str := func(s string) *string { return &s }

	require.ErrorIs(t, domain.ValidateSchedule(str("10:00"), str("09:00")), domain.ErrInvalidSchedule)
	require.ErrorIs(t, domain.ValidateSchedule(str("10:00"), str("10:00")), domain.ErrInvalidSchedule)
	require.ErrorIs(t, domain.ValidateSchedule(str("10h"), str("11:00")), domain.ErrInvalidSchedule)
	require.ErrorIs(t, domain.ValidateSchedule(str("25:00"), str("26:00")), domain.ErrInvalidSchedule)
	require.NoError(t, domain.ValidateSchedule(str("10:00"), str("11:30:00")))
	require.NoError(t, domain.ValidateSchedule(nil, str("11:30")))
	require.NoError(t, domain.ValidateSchedule(str(""), str("11:30")))
}

func TestParseClock(t *testing.T) {
	d, err := domain.ParseClock("09:15:30")
	require.NoError(t, err)
	require.Equal(t, "9h15m30s", d.String())

	_, err = domain.ParseClock("9:15")
	require.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestIsKnownKind(t *testing.T) {
	require.True(t, domain.IsKnownKind(" "+domain.Kinds[3]+" "))
	require.False(t, domain.IsKnownKind("Skydiving"))
}
