package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestRegisterTwice(t *testing.T) {
	reg := prometheus.NewRegistry()
	require.NoError(t, Register(reg))
	require.NoError(t, Register(reg))
}

func TestCounters(t *testing.T) {
	before := testutil.ToFloat64(LancamentosSynced.WithLabelValues("all"))
	LancamentosSynced.WithLabelValues("all").Add(3)
	require.Equal(t, before+3, testutil.ToFloat64(LancamentosSynced.WithLabelValues("all")))
}
