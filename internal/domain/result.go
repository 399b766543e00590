package domain

// ResultStatus is the outcome of one backend write.
type ResultStatus string

const (
	ResultSuccess ResultStatus = "success"
	ResultError   ResultStatus = "error"
)

func (s ResultStatus) String() string { return string(s) }

// BackendResult reports what happened on a single backend. LogID is set only
// on success and Error only on failure.
type BackendResult struct {
	System System
	Status ResultStatus
	LogID  int64
	Error  string
}

func SuccessResult(system System, logID int64) BackendResult {
	return BackendResult{System: system, Status: ResultSuccess, LogID: logID}
}

func ErrorResult(system System, err error) BackendResult {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	return BackendResult{System: system, Status: ResultError, Error: msg}
}

func (r BackendResult) Succeeded() bool { return r.Status == ResultSuccess }
