// Package queue is the durable FIFO of not-yet-confirmed webhook POSTs.
// Nothing handed to it is lost: an attempt that cannot be delivered is
// persisted and replayed when connectivity comes back.
package queue

import (
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/goccy/go-json"
	"github.com/gofrs/uuid"
	"github.com/pkg/errors"
	"go.uber.org/atomic"

	"github.com/lasoteam/laso-sync/log"
	"github.com/lasoteam/laso-sync/model"
	"github.com/lasoteam/laso-sync/storage"
)

type Queue struct {
	store  storage.Store
	client *resty.Client
	online *atomic.Bool

	// serializes Flush against itself and against Enqueue, so an
	// overlapping trigger cannot double-send or drop a fresh task when
	// the remaining list is written back.
	mu sync.Mutex
}

func New(store storage.Store, timeout time.Duration) *Queue {
	return &Queue{
		store:  store,
		client: resty.New().SetTimeout(timeout),
		online: atomic.NewBool(true),
	}
}

// Online reports the last connectivity state the host signalled.
func (q *Queue) Online() bool {
	return q.online.Load()
}

// SetOnline records the connectivity state. The offline-to-online edge
// replays the queue.
func (q *Queue) SetOnline(online bool) {
	wasOnline := q.online.Swap(online)
	if online && !wasOnline {
		q.Flush()
	}
}

// Enqueue appends a task for later replay.
func (q *Queue) Enqueue(url string, body json.RawMessage, headers map[string]string) {
	q.mu.Lock()
	defer q.mu.Unlock()

	tasks := append(q.load(), model.Task{
		ID:       uuid.Must(uuid.NewV4()).String(),
		URL:      url,
		Body:     body,
		Headers:  headers,
		QueuedAt: time.Now().UTC(),
	})
	q.persist(tasks)
}

// Tasks returns the persisted queue in replay order.
func (q *Queue) Tasks() []model.Task {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.load()
}

// Flush replays every pending task in original order and writes the
// still-failing remainder back, which is how delivered tasks leave the
// queue. No-op while offline. Returns how many tasks remain and whether
// a non-empty queue was fully drained by this call.
func (q *Queue) Flush() (remaining int, drained bool) {
	if !q.Online() {
		return len(q.Tasks()), false
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	tasks := q.load()
	if len(tasks) == 0 {
		return 0, false
	}

	var failed []model.Task
	for _, task := range tasks {
		if err := q.send(task.URL, task.Body, task.Headers); err != nil {
			log.Warnf("queue.flush.send %s: %s", task.ID, err)
			failed = append(failed, task)
		}
	}
	q.persist(failed)

	if len(failed) == 0 {
		log.Infof("queue.flush: all %d pending items sent", len(tasks))
		return 0, true
	}
	return len(failed), false
}

// SubmitOrQueue is the at-most-one-attempt submission primitive: offline
// means enqueue without touching the network, a failed attempt means
// enqueue, a 2xx means done. It never retries by itself, replay belongs
// to Flush.
func (q *Queue) SubmitOrQueue(url string, body any, headers map[string]string) model.Result {
	raw, err := json.Marshal(body)
	if err != nil {
		// unserializable body, nothing sensible to persist
		log.Error("queue.submit.encode:", err)
		return model.Result{}
	}

	if !q.Online() {
		q.Enqueue(url, raw, headers)
		return model.Result{Queued: true}
	}

	if err := q.send(url, raw, headers); err != nil {
		log.Warn("queue.submit:", err)
		q.Enqueue(url, raw, headers)
		return model.Result{Queued: true}
	}
	return model.Result{OK: true}
}

func (q *Queue) send(url string, body json.RawMessage, headers map[string]string) error {
	if headers == nil {
		headers = map[string]string{"Content-Type": "application/json"}
	}
	resp, err := q.client.R().
		SetHeaders(headers).
		SetBody([]byte(body)).
		Post(url)
	if err != nil {
		return err
	}
	if !resp.IsSuccess() {
		return errors.Errorf("HTTP %s", resp.Status())
	}
	return nil
}

// StartPeriodicFlush replays the queue on a fixed interval, alongside the
// edge-triggered online signal. Disabled when interval is zero. The
// returned func stops the ticker.
func (q *Queue) StartPeriodicFlush(interval time.Duration) (stop func()) {
	if interval <= 0 {
		return func() {}
	}

	ticker := time.NewTicker(interval)
	done := make(chan struct{})
	go func() {
		for {
			select {
			case <-ticker.C:
				q.Flush()
			case <-done:
				ticker.Stop()
				return
			}
		}
	}()
	return func() { close(done) }
}

// load reads the persisted list. Any read failure or corruption means an
// empty queue, never an error for the caller.
func (q *Queue) load() []model.Task {
	raw, ok, err := q.store.Get(storage.QueueKey)
	if err != nil {
		log.Warn("queue.load:", err)
		return nil
	}
	if !ok {
		return nil
	}
	var tasks []model.Task
	if err := json.Unmarshal([]byte(raw), &tasks); err != nil {
		log.Warn("queue.load.decode:", err)
		return nil
	}
	return tasks
}

func (q *Queue) persist(tasks []model.Task) {
	if tasks == nil {
		// the stored value stays a valid JSON array
		tasks = []model.Task{}
	}
	raw, err := json.Marshal(tasks)
	if err != nil {
		log.Error("queue.persist.encode:", err)
		return
	}
	if err := q.store.Set(storage.QueueKey, string(raw)); err != nil {
		log.Warn("queue.persist:", err)
	}
}
