package models

// Result is the single terminal outcome of a confirmation attempt.
type Result interface {
	isResult()

	// Class returns the outcome class name used for reporting.
	Class() string
}

// ResultCompleted means the intent reached a confirmed state.
type ResultCompleted struct{}

// ResultCanceled means the customer abandoned confirmation. It is not a
// failure.
type ResultCanceled struct{}

// ResultFailed carries the error that ended the attempt.
type ResultFailed struct {
	Err error
}

func (ResultCompleted) isResult() {}
func (ResultCanceled) isResult()  {}
func (ResultFailed) isResult()    {}

func (ResultCompleted) Class() string { return "completed" }
func (ResultCanceled) Class() string  { return "canceled" }
func (ResultFailed) Class() string    { return "failed" }

func (r ResultFailed) Error() string {
	if r.Err == nil {
		return "failed to complete payment"
	}
	return r.Err.Error()
}
