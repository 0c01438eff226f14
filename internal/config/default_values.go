package config

const (
	DefaultStorageDriver = "sqlite"

	DefaultAutosaveMS = 1000

	DefaultRetryMaxAttempts      = 3
	DefaultRetryInitialBackoffMS = 150
	DefaultRetryMaxBackoffMS     = 2000

	DefaultInboxPattern  = "*.{txt,md}"
	DefaultInboxSettleMS = 200
)
