package config

func NewSlackForTest(botToken, apiURL string) *Slack {
	return &Slack{botToken: botToken, apiURL: apiURL}
}

func NewPolicyForTest(file string, allowAll bool) *Policy {
	return &Policy{file: file, allowAll: allowAll}
}

func NewSidecarForTest(queueSize, workers int) *Sidecar {
	return &Sidecar{queueSize: queueSize, workers: workers}
}

func NewRepositoryForTest(backend, projectID, postgresDSN string) *Repository {
	return &Repository{backend: backend, projectID: projectID, postgresDSN: postgresDSN}
}

func NewLoggerForTest(level, format, output string) *Logger {
	return &Logger{level: level, format: format, output: output}
}

func NewSentryForTest(dsn, environment string) *Sentry {
	return &Sentry{dsn: dsn, environment: environment}
}
