package timex

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDuration_UnmarshalString(t *testing.T) {
	var d Duration
	require.NoError(t, json.Unmarshal([]byte(`"5s"`), &d))
	require.Equal(t, 5*time.Second, d.Duration)
}

func TestDuration_UnmarshalNanoseconds(t *testing.T) {
	var d Duration
	require.NoError(t, json.Unmarshal([]byte(`1500000000`), &d))
	require.Equal(t, 1500*time.Millisecond, d.Duration)
}

func TestDuration_UnmarshalRejectsOtherShapes(t *testing.T) {
	var d Duration
	require.Error(t, json.Unmarshal([]byte(`"not a duration"`), &d))
	require.Error(t, json.Unmarshal([]byte(`{"x":1}`), &d))
	require.Error(t, json.Unmarshal([]byte(`true`), &d))
}

func TestDuration_MarshalRoundTrips(t *testing.T) {
	data, err := json.Marshal(Duration{Duration: 2 * time.Minute})
	require.NoError(t, err)
	require.Equal(t, `"2m0s"`, string(data))

	var d Duration
	require.NoError(t, json.Unmarshal(data, &d))
	require.Equal(t, 2*time.Minute, d.Duration)
}
