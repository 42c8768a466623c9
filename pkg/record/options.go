package record

// ListOptions controls List and Count queries.
type ListOptions struct {
	// Limit caps the number of rows returned. Zero or negative means no cap.
	Limit int
	// Offset skips rows for pagination.
	Offset int
	// ActiveOnly restricts results to records not soft-deleted.
	ActiveOnly bool
	// Order is a raw ORDER BY expression. Defaults to "id ASC".
	Order string
}

// opConfig collects per-call switches for the mutating store operations.
type opConfig struct {
	skipAuth     bool
	skipToken    bool
	skipPassword bool
}

// Option tweaks a single Save/BulkSave/Update/Delete/Purge call.
type Option func(*opConfig)

// SkipAuth bypasses the store's Authorizer for this call. Meant for trusted
// internal paths such as seeding and migrations.
func SkipAuth() Option {
	return func(c *opConfig) { c.skipAuth = true }
}

// WithoutToken leaves the token column untouched on save. The caller is then
// responsible for having set a unique value.
func WithoutToken() Option {
	return func(c *opConfig) { c.skipToken = true }
}

// WithoutPasswordHash skips the automatic password hashing on save, for
// callers that hash through another channel.
func WithoutPasswordHash() Option {
	return func(c *opConfig) { c.skipPassword = true }
}

func buildConfig(opts []Option) opConfig {
	var c opConfig
	for _, opt := range opts {
		opt(&c)
	}
	return c
}
