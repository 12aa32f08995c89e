package natsbus

import (
	"context"
	"encoding/json"
	"hash/fnv"
	"runtime"
	"sync"
	"time"
)

const (
	defaultRequestTimeout = 5 * time.Second
	workerQueueSize       = 256
)

type job struct {
	data    []byte
	respond func([]byte)
}

// workerPool runs requests on a fixed set of workers. Requests for the same
// match always land on the same worker, so they keep their arrival order
// while different matches proceed in parallel.
type workerPool struct {
	queues []chan job
	route  func([]byte) string
	wg     sync.WaitGroup

	mu      sync.RWMutex
	stopped bool
}

// startWorkers starts n workers (twice the CPU count when n <= 0). Each
// request runs under its own timeout derived from ctx.
func (s *ActionServer) startWorkers(ctx context.Context, n int, timeout time.Duration) *workerPool {
	if n <= 0 {
		n = runtime.NumCPU() * 2
	}
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}
	p := &workerPool{queues: make([]chan job, n), route: s.routeKey}
	for i := range p.queues {
		q := make(chan job, workerQueueSize)
		p.queues[i] = q
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			for j := range q {
				reqCtx, cancel := context.WithTimeout(ctx, timeout)
				reply := s.handle(reqCtx, j.data)
				cancel()
				j.respond(reply)
			}
		}()
	}
	return p
}

// submit queues data on its match's worker. It reports false once the pool
// is stopped.
func (p *workerPool) submit(data []byte, respond func([]byte)) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.stopped {
		return false
	}
	p.queues[p.index(p.route(data))] <- job{data: data, respond: respond}
	return true
}

func (p *workerPool) index(key string) int {
	return int(fnv32(key) % uint32(len(p.queues)))
}

// stop refuses new requests and waits for queued ones to finish.
func (p *workerPool) stop() {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return
	}
	p.stopped = true
	for _, q := range p.queues {
		close(q)
	}
	p.mu.Unlock()
	p.wg.Wait()
}

func fnv32(key string) uint32 {
	h := fnv.New32a()
	h.Write([]byte(key))
	return h.Sum32()
}

// routeKey is the match code a request targets, resolving player-addressed
// requests through the registry. Undecodable requests share the empty key.
func (s *ActionServer) routeKey(data []byte) string {
	var req Request
	if err := json.Unmarshal(data, &req); err != nil {
		return ""
	}
	if req.MatchCode != "" {
		return req.MatchCode
	}
	playerID := req.PlayerID
	if playerID == "" && req.Command != nil {
		playerID = req.Command.PlayerID
	}
	if m, ok := s.registry.GetByPlayer(playerID); ok {
		return m.Code()
	}
	return playerID
}
