package reporter

// CompositeReporter fans out events to multiple reporters, so a run can
// drive a terminal display and an NDJSON stream at once.
type CompositeReporter struct {
	reporters []Reporter
}

// NewCompositeReporter creates a composite reporter.
func NewCompositeReporter(reporters ...Reporter) *CompositeReporter {
	return &CompositeReporter{reporters: reporters}
}

func (c *CompositeReporter) ExportStarted(summary ExportStartSummary) {
	for _, r := range c.reporters {
		r.ExportStarted(summary)
	}
}

func (c *CompositeReporter) ExportConfig(summary ExportConfigSummary) {
	for _, r := range c.reporters {
		r.ExportConfig(summary)
	}
}

func (c *CompositeReporter) Progress(snapshot ProgressSnapshot) {
	for _, r := range c.reporters {
		r.Progress(snapshot)
	}
}

func (c *CompositeReporter) ValidationComplete(summary ValidationSummary) {
	for _, r := range c.reporters {
		r.ValidationComplete(summary)
	}
}

func (c *CompositeReporter) ExportComplete(summary ExportOutcome) {
	for _, r := range c.reporters {
		r.ExportComplete(summary)
	}
}

func (c *CompositeReporter) Warning(message string) {
	for _, r := range c.reporters {
		r.Warning(message)
	}
}

func (c *CompositeReporter) Error(err ReporterError) {
	for _, r := range c.reporters {
		r.Error(err)
	}
}

func (c *CompositeReporter) OperationComplete(message string) {
	for _, r := range c.reporters {
		r.OperationComplete(message)
	}
}

func (c *CompositeReporter) BatchStarted(info BatchStartInfo) {
	for _, r := range c.reporters {
		r.BatchStarted(info)
	}
}

func (c *CompositeReporter) FileProgress(context FileProgressContext) {
	for _, r := range c.reporters {
		r.FileProgress(context)
	}
}

func (c *CompositeReporter) BatchComplete(summary BatchSummary) {
	for _, r := range c.reporters {
		r.BatchComplete(summary)
	}
}

func (c *CompositeReporter) Verbose(message string) {
	for _, r := range c.reporters {
		r.Verbose(message)
	}
}
