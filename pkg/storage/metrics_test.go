package storage

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestMetricsStore(t *testing.T) {
	s := WithMetrics(NewMemoryStore())

	getsBefore := testutil.ToFloat64(storeGets)
	putsBefore := testutil.ToFloat64(storePuts)
	missesBefore := testutil.ToFloat64(storeMisses)

	require.NoError(t, s.Put([]byte("foo"), []byte("bar")))
	v, err := s.Get([]byte("foo"))
	require.NoError(t, err)
	require.Equal(t, []byte("bar"), v)
	_, err = s.Get([]byte("absent"))
	require.ErrorIs(t, err, ErrKeyNotFound)
	require.NoError(t, s.Delete([]byte("foo")))

	require.Equal(t, getsBefore+2, testutil.ToFloat64(storeGets))
	require.Equal(t, putsBefore+1, testutil.ToFloat64(storePuts))
	require.Equal(t, missesBefore+1, testutil.ToFloat64(storeMisses))
	require.NoError(t, s.Close())
}
