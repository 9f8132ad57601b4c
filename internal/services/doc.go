// Package services defines the shared error taxonomy for external
// collaborators (download agents, metadata lookup). Sentinel markers combined
// with Wrap give the orchestrator a uniform way to classify a failure as an
// availability, configuration, or transient problem.
package services
