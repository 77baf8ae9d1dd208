package domain

import "errors"

// Pipeline error kinds. Wrapped with fmt.Errorf("%w: ...") at the point of
// failure and checked with errors.Is at the boundaries.
var (
	// ErrAuth: credential acquisition or refresh failed. Fatal to the
	// ingestion run; requires re-authorization.
	ErrAuth = errors.New("auth error")

	// ErrFetch: the mail provider returned a non-success response.
	ErrFetch = errors.New("fetch error")

	// ErrParse: model output was not valid JSON in the expected shape.
	// The affected batch is discarded, never partially accepted.
	ErrParse = errors.New("parse error")

	// ErrDB: a persistence failure other than the expected duplicate-key
	// collision. Rolls back the batch.
	ErrDB = errors.New("db error")

	// ErrEmbedding: embedding generation failed for one record. That record
	// is skipped; the batch continues.
	ErrEmbedding = errors.New("embedding error")

	// ErrExecution: synthesized SQL failed to execute. Returned to the
	// caller as "could not answer", never a crash.
	ErrExecution = errors.New("sql execution error")
)
