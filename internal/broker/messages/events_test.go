package messages

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDayKey_DecodesBothEvents(t *testing.T) {
	stop := int64(3)
	scan, err := json.Marshal(ScanRecorded{ScanID: 1, CarrierID: 7, Date: "2024-05-01", StopID: &stop, ScannedAt: time.Now()})
	require.NoError(t, err)
	route, err := json.Marshal(RouteSaved{RouteID: 2, CarrierID: 8, Date: "2024-05-02", SavedAt: time.Now()})
	require.NoError(t, err)

	var k DayKey
	require.NoError(t, json.Unmarshal(scan, &k))
	require.Equal(t, DayKey{CarrierID: 7, Date: "2024-05-01"}, k)

	require.NoError(t, json.Unmarshal(route, &k))
	require.Equal(t, DayKey{CarrierID: 8, Date: "2024-05-02"}, k)
}

func TestPartitionKey(t *testing.T) {
	require.Equal(t, []byte("42"), PartitionKey(42))
}
