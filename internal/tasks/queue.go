// Package tasks implements the Task Shell (component C9): named in-process
// queues that wrap workflow dispatch with retry-until-bounded-count-then-
// dead-letter semantics, the Go equivalent of a Celery/Kombu queue topology.
package tasks

// QueueName identifies one of the named task queues.
type QueueName string

const (
	QueueDefault           QueueName = "default"
	QueueEmailIngestion    QueueName = "email_ingestion"
	QueueDocumentProcessing QueueName = "document_processing"
	QueueHighPriority      QueueName = "high_priority"
	QueueLongRunning       QueueName = "long_running"
	QueueFailedTasks       QueueName = "failed_tasks"
	QueueRetryTasks        QueueName = "retry_tasks"
)

// AllQueues lists every named queue the shell provisions workers for.
var AllQueues = []QueueName{
	QueueDefault, QueueEmailIngestion, QueueDocumentProcessing,
	QueueHighPriority, QueueLongRunning, QueueFailedTasks, QueueRetryTasks,
}
