package metrics_test

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github/chapool/go-ledger/internal/metrics"
)

func TestRecordExchange(t *testing.T) {
	m := metrics.New()

	m.RecordExchange("0x04", "0x9000", 10*time.Millisecond)
	m.RecordExchange("0x04", "0x9000", 20*time.Millisecond)
	m.RecordFailure("0x02", time.Millisecond)
	m.RecordDeviceCommand("0x06", "0x9000")

	count, err := testutil.GatherAndCount(m.Registry, "ledger_transport_exchanges_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	count, err = testutil.GatherAndCount(m.Registry, "ledger_transport_failures_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	count, err = testutil.GatherAndCount(m.Registry, "ledger_device_commands_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}
