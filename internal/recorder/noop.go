package recorder

// NoopRecorder discards everything; used for smoke tests and dry runs.
type NoopRecorder struct{}

func NewNoopRecorder() *NoopRecorder { return &NoopRecorder{} }

func (n *NoopRecorder) RecordSubject(_ *SubjectRow) error { return nil }
func (n *NoopRecorder) RecordTrial(_ *TrialRow) error     { return nil }
func (n *NoopRecorder) RecordBlock(_ *BlockRow) error     { return nil }
func (n *NoopRecorder) Close() error                      { return nil }
