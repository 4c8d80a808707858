// Package apperr classifies the failures the orchestrator reports to an operator.
//
// Every error that should change the process exit code or carry advice for the
// operator is an *Error with a Kind. Lock contention is deliberately absent: a busy
// destination is an outcome of the lock package, not a failure.
//
// # Kinds
//
//   - INVALID_NAME, NOT_FOUND, CONFIGURATION: configuration errors, never retried.
//   - ENGINE_FAILURE: the synchronization engine reported a failed run.
//   - CONNECTIVITY: the remote could not be reached.
//
// # Usage
//
//	err := apperr.NotFound("destination.get", name)
//	if apperr.IsConfiguration(err) {
//	    os.Exit(apperr.ExitCode(err))
//	}
package apperr
