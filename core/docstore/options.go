package docstore

import (
	"io"

	"github.com/asaidimu/go-docstore/core/storage"
	"go.uber.org/zap"
)

// CorruptPolicy decides what happens when a collection's on-disk content is
// not a valid JSON array of objects.
type CorruptPolicy int

const (
	// CorruptFail surfaces storage.ErrCorruptCollection to the caller.
	// This is the default: masking data loss is worse than failing.
	CorruptFail CorruptPolicy = iota

	// CorruptRecover logs a warning and treats the collection as empty.
	// The next save overwrites the corrupt content.
	CorruptRecover
)

// Config holds the tunable parameters of a Database. Use functional Option
// values with Open rather than constructing a Config directly.
type Config struct {
	// Codec overrides the default file-per-collection codec. When set,
	// the root path passed to Open is ignored.
	Codec storage.Codec

	// Logger receives structured operational log messages.
	Logger *zap.Logger

	// RandomSource supplies the bytes behind generated document ids.
	// Defaults to crypto/rand; substitute a deterministic reader in tests.
	RandomSource io.Reader

	// CorruptPolicy selects the handling of corrupt collection content.
	CorruptPolicy CorruptPolicy
}

// Option is a functional option applied to Config during Open.
type Option func(*Config)

// WithCodec replaces the default file codec with a custom backend, such as
// the sqlite package's Codec or a MemoryCodec for tests.
func WithCodec(c storage.Codec) Option {
	return func(cfg *Config) { cfg.Codec = c }
}

// WithLogger sets the database logger. If not set, logging is disabled.
func WithLogger(l *zap.Logger) Option {
	return func(cfg *Config) { cfg.Logger = l }
}

// WithRandomSource sets the random source used for id generation.
func WithRandomSource(r io.Reader) Option {
	return func(cfg *Config) { cfg.RandomSource = r }
}

// WithCorruptPolicy selects the corrupt collection handling policy.
func WithCorruptPolicy(p CorruptPolicy) Option {
	return func(cfg *Config) { cfg.CorruptPolicy = p }
}
