package realtime

import (
	"sync"

	"PSocial/logger"
)

type fanoutJob struct {
	conns   []*Client
	payload []byte
}

// Fanout is a small worker pool for pushes that target many rooms at
// once (presence status changes). No ordering promise across rooms.
type Fanout struct {
	jobs chan fanoutJob
	quit chan struct{}
	once sync.Once
}

func NewFanout(workers, queue int) *Fanout {
	if workers <= 0 {
		workers = 1
	}
	if queue <= 0 {
		queue = 256
	}
	f := &Fanout{
		jobs: make(chan fanoutJob, queue),
		quit: make(chan struct{}),
	}
	for i := 0; i < workers; i++ {
		go func() {
			for {
				select {
				case <-f.quit:
					return
				case job := <-f.jobs:
					for _, c := range job.conns {
						if !c.enqueue(job.payload) {
							// Slow client: skip, the writer goroutine owns disconnects
							logger.Debugf("[fanout] drop frame conn=%s user=%s", c.ConnID, c.UserID)
						}
					}
				}
			}
		}()
	}
	return f
}

func (f *Fanout) Broadcast(conns []*Client, payload []byte) {
	if len(conns) == 0 || len(payload) == 0 {
		return
	}
	select {
	case <-f.quit:
	case f.jobs <- fanoutJob{conns: conns, payload: payload}:
	default:
		logger.Warnf("[fanout] queue full, dropping job for %d conns", len(conns))
	}
}

// Close stops the workers. Broadcasts after Close are silently dropped,
// so late status pushes during shutdown cannot panic.
func (f *Fanout) Close() {
	f.once.Do(func() { close(f.quit) })
}
