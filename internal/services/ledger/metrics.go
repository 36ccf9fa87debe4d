package ledger

// MetricsCollector records engine telemetry. The callback metrics keep
// "accepted" and the eventual disposition separate on purpose.
type MetricsCollector interface {
	RecordOperation(operation, result string)
	RecordCallback(domain string, disposition string)
	RecordTransaction(txType string, amount string)
	RecordError(operation, errType string)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
type NoopMetricsCollector struct{}

func (n *NoopMetricsCollector) RecordOperation(string, string)   {}
func (n *NoopMetricsCollector) RecordCallback(string, string)    {}
func (n *NoopMetricsCollector) RecordTransaction(string, string) {}
func (n *NoopMetricsCollector) RecordError(string, string)       {}
