package logger

import (
	"fmt"
	"time"

	"github.com/fluent/fluent-logger-golang/fluent"
	"github.com/rentpay/rentpay/internal/config"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const fluentTag = "rentpay.logs"

// fluentSink forwards keyed log entries to a Fluentd agent. A nil sink is
// valid and drops everything.
type fluentSink struct {
	client  *fluent.Fluent
	service string
	// fields bound through With
	fields []interface{}
	// local reports delivery problems; it never forwards to the sink
	local *zap.SugaredLogger
}

func newFluentSink(cfg *config.Configuration, local *zap.SugaredLogger) *fluentSink {
	if !cfg.Logging.FluentdEnabled {
		return nil
	}
	if cfg.Logging.FluentdHost == "" || cfg.Logging.FluentdPort <= 0 {
		local.Warnw("fluentd enabled without host and port, logging to stdout only")
		return nil
	}

	client, err := fluent.New(fluent.Config{
		FluentHost:   cfg.Logging.FluentdHost,
		FluentPort:   cfg.Logging.FluentdPort,
		Async:        true,
		BufferLimit:  8 * 1024 * 1024,
		WriteTimeout: 3 * time.Second,
		RetryWait:    500,
		MaxRetry:     5,
	})
	if err != nil {
		local.Warnw("failed to connect to fluentd, logging to stdout only",
			"host", cfg.Logging.FluentdHost,
			"port", cfg.Logging.FluentdPort,
			"error", err)
		return nil
	}

	local.Infow("fluentd log forwarding enabled",
		"host", cfg.Logging.FluentdHost,
		"port", cfg.Logging.FluentdPort)
	return &fluentSink{
		client:  client,
		service: "rentpay-" + string(cfg.Deployment.Mode),
		local:   local,
	}
}

func (s *fluentSink) with(keysAndValues ...interface{}) *fluentSink {
	if s == nil {
		return nil
	}
	fields := make([]interface{}, 0, len(s.fields)+len(keysAndValues))
	fields = append(fields, s.fields...)
	fields = append(fields, keysAndValues...)
	return &fluentSink{client: s.client, service: s.service, fields: fields, local: s.local}
}

func (s *fluentSink) post(level zapcore.Level, msg string, keysAndValues []interface{}) {
	if s == nil {
		return
	}

	record := map[string]interface{}{
		"level":     level.String(),
		"message":   msg,
		"service":   s.service,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}
	addFields(record, s.fields)
	addFields(record, keysAndValues)

	if err := s.client.Post(fluentTag, record); err != nil {
		s.local.Warnw("failed to forward log to fluentd", "error", err)
	}
}

// addFields copies key/value pairs into record. Errors are stringified so the
// msgpack encoder does not drop them.
func addFields(record map[string]interface{}, keysAndValues []interface{}) {
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		key, ok := keysAndValues[i].(string)
		if !ok {
			key = fmt.Sprint(keysAndValues[i])
		}
		value := keysAndValues[i+1]
		if err, isErr := value.(error); isErr && err != nil {
			value = err.Error()
		}
		record[key] = value
	}
}
