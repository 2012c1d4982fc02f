package domain

// JobState tracks one remote generation job through its lifecycle. Complete,
// Failed and TimedOut are terminal: a job reaches exactly one of them and
// never leaves it.
type JobState string

const (
	JobSubmitted JobState = "SUBMITTED"
	JobPolling   JobState = "POLLING"
	JobComplete  JobState = "COMPLETE"
	JobFailed    JobState = "FAILED"
	JobTimedOut  JobState = "TIMED_OUT"
)

// Terminal reports whether no further transition can occur from s.
func (s JobState) Terminal() bool {
	switch s {
	case JobComplete, JobFailed, JobTimedOut:
		return true
	}
	return false
}

// GenerationJob is one asynchronous remote generation request for a single
// scene. The orchestrator creates it at submission time and advances State
// while polling.
type GenerationJob struct {
	SceneOrdinal int
	Prompt       string
	ModelID      string
	ReferenceIDs []string
	State        JobState
}
