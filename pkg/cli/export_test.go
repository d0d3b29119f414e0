package cli

var (
	ParseGCSURL    = parseGCSURL
	PrintReport    = printReport
	GetIndexConfig = getIndexConfig
)
