package slack

// Export internal options for testing
var (
	TestWithCacheTTL = WithCacheTTL
)
