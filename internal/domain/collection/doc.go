// Package collection contains the domain model of supplier catalog
// collection: collection jobs and their lifecycle, the collection window,
// the normalized catalog item every collector emits, and the Collector
// contract itself.
//
// A collection job is created in the running state when a trigger asks for
// a collection, is mutated only by the orchestrator, and ends in exactly one
// of the completed or failed states. Collectors never write job state; they
// report a Result which the orchestrator folds into the job.
package collection
