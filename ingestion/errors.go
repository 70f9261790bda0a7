package ingestion

import "errors"

var (
	// ErrStoreRequired is returned when a brief store is not provided.
	ErrStoreRequired = errors.New("brief store required")

	// ErrCheckpointRepositoryRequired is returned when a checkpoint repository is not provided.
	ErrCheckpointRepositoryRequired = errors.New("checkpoint repository required")

	// ErrSourceRequired is returned when a document source is not provided.
	ErrSourceRequired = errors.New("document source required")

	// ErrAIProviderRequired is returned when an AI provider is not provided.
	ErrAIProviderRequired = errors.New("AI provider required")

	// ErrPipelineReleased is returned when a released pipeline is used.
	ErrPipelineReleased = errors.New("pipeline released")
)
