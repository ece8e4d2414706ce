package queue

import (
	"sync"

	"github.com/maltedev/amazon-book-scraper/internal/models"
)

// Queue is the FIFO worklist. The pipeline runs a single worker, so Pop
// never blocks; requeued tasks go to the back, behind the remaining
// first-attempt tasks.
type Queue struct {
	tasks []*models.Task
	mu    sync.Mutex
}

func New() *Queue {
	return &Queue{tasks: make([]*models.Task, 0)}
}

func (q *Queue) Push(task *models.Task) {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.tasks = append(q.tasks, task)
}

func (q *Queue) Pop() (*models.Task, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.tasks) == 0 {
		return nil, false
	}

	task := q.tasks[0]
	q.tasks = q.tasks[1:]
	return task, true
}

func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.tasks)
}
