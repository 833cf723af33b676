package resolver

import "errors"

var (
	// ErrRetrievalFailure means the historical event log could not be fetched. The pipeline
	// continues with the events it already has.
	ErrRetrievalFailure = errors.New("event retrieval failed")

	// ErrLiveReadFailure marks a per-candidate streamedBuilders read that errored or returned
	// an unexpected shape
	ErrLiveReadFailure = errors.New("live contract read failed")

	// ErrConfigurationFailure means the contract could not be resolved from the directory.
	// Nothing can be fetched, the pipeline stays not ready.
	ErrConfigurationFailure = errors.New("contract configuration invalid")

	ErrInvalidUnknownPolicy = errors.New("invalid unknown policy")
)
