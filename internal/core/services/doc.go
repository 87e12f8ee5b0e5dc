// Package services implements the driving port interfaces.
// Services contain the core business logic and orchestrate
// calls to driven ports (adapters).
//
// The RetrievalCoordinator owns chunk identifiers, the embedding worker
// pool and namespace threading. The AssistantService layers chunking and
// question answering on top of it for the transports.
package services
