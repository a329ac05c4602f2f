package logger

// retryableHTTPLogger adapts Logger to go-retryablehttp's Logger interface.
type retryableHTTPLogger struct {
	logger *Logger
}

func (l *Logger) GetRetryableHTTPLogger() *retryableHTTPLogger {
	return &retryableHTTPLogger{logger: l}
}

// Printf is used for retry attempts, which are worth seeing only when
// debugging a gateway.
func (r *retryableHTTPLogger) Printf(format string, v ...interface{}) {
	r.logger.Debugf(format, v...)
}

// ginLogger adapts Logger to the io.Writer gin writes recovery output to.
type ginLogger struct {
	logger *Logger
}

func (l *Logger) GetGinLogger() *ginLogger {
	return &ginLogger{logger: l}
}

func (g *ginLogger) Write(p []byte) (n int, err error) {
	g.logger.Errorw("gin", "output", string(p))
	return len(p), nil
}
