// Package coreerr defines the error kinds shared across the core (spec §7).
// Components wrap one of these sentinels with fmt.Errorf("...: %w", Kind)
// so callers can classify failures with errors.Is.
package coreerr

import "errors"

var (
	// ErrConfigInvalid marks an unparseable schedule or impossible cron
	// expression. The job is disabled rather than retried.
	ErrConfigInvalid = errors.New("config invalid")

	// ErrStoreNotFound marks an absent row. Upsert paths upgrade this to a
	// create; read paths surface it to the caller.
	ErrStoreNotFound = errors.New("store: not found")

	// ErrStoreConflict marks a uniqueness violation. Callers retry once
	// with a re-read then fail soft.
	ErrStoreConflict = errors.New("store: conflict")

	// ErrStoreBackend marks a fatal IO error. Fatal for the job invocation;
	// captured into lastError and the job is rescheduled.
	ErrStoreBackend = errors.New("store: backend error")

	// ErrVenueUnreachable marks a network failure surviving all retry
	// attempts.
	ErrVenueUnreachable = errors.New("venue: unreachable")

	// ErrVenueTransient marks a final 5xx/429 after retries are exhausted.
	ErrVenueTransient = errors.New("venue: transient error")

	// ErrVenueClientError marks a terminal 4xx (non-429) response.
	ErrVenueClientError = errors.New("venue: client error")

	// ErrExecutionFailed marks a non-ok response from a stop-loss
	// execution adapter.
	ErrExecutionFailed = errors.New("execution failed")

	// ErrCancelRequested marks a shutdown-triggered abort. Callers treat
	// this as "no error to surface to the user."
	ErrCancelRequested = errors.New("cancel requested")
)
