package storage

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	storeGets = prometheus.NewCounter(
		prometheus.CounterOpts{
			Help:      "Number of Get calls on the node store",
			Name:      "store_get_total",
			Namespace: "patriciadb",
		},
	)
	storePuts = prometheus.NewCounter(
		prometheus.CounterOpts{
			Help:      "Number of Put calls on the node store",
			Name:      "store_put_total",
			Namespace: "patriciadb",
		},
	)
	storeDeletes = prometheus.NewCounter(
		prometheus.CounterOpts{
			Help:      "Number of Delete calls on the node store",
			Name:      "store_delete_total",
			Namespace: "patriciadb",
		},
	)
	storeMisses = prometheus.NewCounter(
		prometheus.CounterOpts{
			Help:      "Number of Get calls that found no data",
			Name:      "store_miss_total",
			Namespace: "patriciadb",
		},
	)
)

func init() {
	prometheus.MustRegister(
		storeGets,
		storePuts,
		storeDeletes,
		storeMisses,
	)
}

// MetricsStore is a Store wrapper that counts backend operations.
type MetricsStore struct {
	ps Store
}

// WithMetrics wraps the provided Store with operation counters.
func WithMetrics(ps Store) *MetricsStore {
	return &MetricsStore{ps: ps}
}

// Get implements the Store interface.
func (s *MetricsStore) Get(key []byte) ([]byte, error) {
	storeGets.Inc()
	val, err := s.ps.Get(key)
	if err != nil {
		storeMisses.Inc()
	}
	return val, err
}

// Put implements the Store interface.
func (s *MetricsStore) Put(key, value []byte) error {
	storePuts.Inc()
	return s.ps.Put(key, value)
}

// Delete implements the Store interface.
func (s *MetricsStore) Delete(key []byte) error {
	storeDeletes.Inc()
	return s.ps.Delete(key)
}

// Seek implements the Store interface.
func (s *MetricsStore) Seek(rng SeekRange, f func(k, v []byte) bool) {
	s.ps.Seek(rng, f)
}

// Close implements the Store interface.
func (s *MetricsStore) Close() error {
	return s.ps.Close()
}
