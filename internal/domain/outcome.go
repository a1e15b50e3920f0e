package domain

// FailureKind classifies a failed publish attempt.
type FailureKind string

const (
	FailureAuthExpired FailureKind = "auth_expired"
	FailureValidation  FailureKind = "validation_error"
	FailureRateLimited FailureKind = "rate_limited"
	FailureRemote      FailureKind = "remote_error"
	FailureTimeout     FailureKind = "timeout"
)

// Retryable reports whether the failure may be retried within the same
// dispatch. Auth and validation failures will not heal on their own.
func (k FailureKind) Retryable() bool {
	return k == FailureRateLimited || k == FailureTimeout
}

// DispatchOutcome is the ephemeral result of one adapter invocation.
// It is folded into the job's PerPlatformResult and then discarded.
type DispatchOutcome struct {
	Platform   string
	OK         bool
	ExternalID string
	ErrorKind  FailureKind
	Detail     string
}

// Result converts the outcome to its persisted form.
func (o DispatchOutcome) Result() PlatformResult {
	if o.OK {
		return PlatformResult{OK: true, ExternalID: o.ExternalID}
	}
	return PlatformResult{
		ErrorKind: string(o.ErrorKind),
		Error:     o.Detail,
	}
}

// Failure builds a failed outcome for a platform without an adapter call.
func Failure(platform string, kind FailureKind, detail string) DispatchOutcome {
	return DispatchOutcome{Platform: platform, ErrorKind: kind, Detail: detail}
}

// Success builds a successful outcome carrying the external post id.
func Success(platform, externalID string) DispatchOutcome {
	return DispatchOutcome{Platform: platform, OK: true, ExternalID: externalID}
}
