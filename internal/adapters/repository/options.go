package repository

// Option applies a configuration option to the TreapStore.
type Option func(*TreapStore)

// WithSeed sets the seed of the treap priorities.
func WithSeed(seed uint64) Option {
	return func(s *TreapStore) {
		s.seed = seed
	}
}

// SQLOption applies a configuration option to the SQLStore.
type SQLOption func(*SQLStore)

// WithBusyTimeout sets the SQLite busy timeout in milliseconds.
func WithBusyTimeout(ms int) SQLOption {
	return func(s *SQLStore) {
		if ms > 0 {
			s.busyTimeoutMs = ms
		}
	}
}
