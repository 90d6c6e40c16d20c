package result

// Status is a value-less outcome: success, or a Failure.
type Status struct {
	failure *Failure
}

// Success returns a successful status.
func Success() Status {
	return Status{}
}

// Failed returns a failed status.
func Failed(message string, cause error) Status {
	return Status{failure: NewFailure(message, cause)}
}

// StatusOf converts an error into a Status.
func StatusOf(err error) Status {
	return Status{failure: AsFailure(err)}
}

func (s Status) IsSuccess() bool {
	return s.failure == nil
}

func (s Status) IsFailure() bool {
	return s.failure != nil
}

func (s Status) Failure() *Failure {
	return s.failure
}

// Err returns the failure as an error, or nil on success.
func (s Status) Err() error {
	if s.failure == nil {
		return nil
	}
	return s.failure
}

// MatchStatus projects a status through exactly one of the two branches.
func MatchStatus[R any](s Status, onSuccess func() R, onFailure func(*Failure) R) R {
	if s.failure != nil {
		return onFailure(s.failure)
	}
	return onSuccess()
}

// CollectStatus folds independent statuses the same way Collect does.
func CollectStatus(statuses []Status) Status {
	var failures []*Failure
	for _, s := range statuses {
		if s.failure != nil {
			failures = append(failures, s.failure)
		}
	}
	if len(failures) > 0 {
		return Status{failure: Join(failures)}
	}
	return Success()
}
