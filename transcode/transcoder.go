package transcode

import "github.com/mrjoshuak/exrpremiere/exr"

// Config configures a Transcoder.
type Config struct {
	// Parallel splits row passes across goroutines. The zero value is
	// replaced by exr.DefaultParallelConfig().
	Parallel exr.ParallelConfig

	// Provider supplies temporary buffers. Nil means a fresh unlimited Pool.
	Provider Provider
}

// DefaultConfig returns a configuration using every CPU and an unlimited
// Pool.
func DefaultConfig() Config {
	return Config{
		Parallel: exr.DefaultParallelConfig(),
		Provider: NewPool(0),
	}
}

// Transcoder runs the row-parallel passes. It holds no per-call state and
// may be shared by goroutines working on different buffers.
type Transcoder struct {
	par      exr.ParallelConfig
	provider Provider
}

// New creates a Transcoder from cfg.
func New(cfg Config) *Transcoder {
	if cfg.Parallel.NumWorkers <= 0 {
		cfg.Parallel = exr.DefaultParallelConfig()
	}
	if cfg.Provider == nil {
		cfg.Provider = NewPool(0)
	}
	return &Transcoder{par: cfg.Parallel, provider: cfg.Provider}
}

// Parallel returns the parallel configuration.
func (t *Transcoder) Parallel() exr.ParallelConfig { return t.par }

// Provider returns the temporary buffer provider.
func (t *Transcoder) Provider() Provider { return t.provider }
