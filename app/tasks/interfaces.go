package tasks

// TaskSchedulerInterface is the surface the rest of the application
// uses to run background work: start and stop the worker pool, and
// submit tasks to it.
type TaskSchedulerInterface interface {
	Start()
	Stop()
	EnqueueTask(task TaskInterface) error
}
