package queue

import (
	"context"
	"hash/fnv"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/nearhelp/sos-engine/internal/api/metrics"
	"github.com/nearhelp/sos-engine/internal/core/ports"
	"github.com/nearhelp/sos-engine/pkg/logger"
)

const (
	defaultWorkers = 8
	channelBuffer  = 256
)

// Dispatcher routes inbound chat messages to a fixed set of workers using
// consistent hashing on the incident id, so messages for one incident are
// appended in the order they were submitted.
type Dispatcher struct {
	workers []chan ports.ChatRequest
	chat    ports.ChatService
	log     zerolog.Logger
}

// NewDispatcher creates a Dispatcher with numWorkers sharded workers.
// If numWorkers <= 0, defaultWorkers is used.
func NewDispatcher(numWorkers int, chat ports.ChatService, log zerolog.Logger) *Dispatcher {
	if numWorkers <= 0 {
		numWorkers = defaultWorkers
	}
	d := &Dispatcher{
		workers: make([]chan ports.ChatRequest, numWorkers),
		chat:    chat,
		log:     logger.Component(log, "chat_dispatcher"),
	}
	for i := range d.workers {
		d.workers[i] = make(chan ports.ChatRequest, channelBuffer)
	}
	return d
}

// Start launches all worker goroutines. Workers stop when ctx is cancelled.
func (d *Dispatcher) Start(ctx context.Context) {
	for i, ch := range d.workers {
		go d.runWorker(ctx, i, ch)
	}
}

// Submit hands a message to the worker responsible for its incident. It never
// blocks: when that worker's buffer is full the message is refused.
func (d *Dispatcher) Submit(req ports.ChatRequest) bool {
	idx := d.shardIndex(req.IncidentID)
	select {
	case d.workers[idx] <- req:
		metrics.ChatQueueDepth.WithLabelValues(strconv.Itoa(idx)).Set(float64(len(d.workers[idx])))
		return true
	default:
		d.log.Warn().Str("incident_id", req.IncidentID).Int("worker_id", idx).Msg("chat queue full")
		return false
	}
}

// shardIndex maps an incident id deterministically to a worker index.
func (d *Dispatcher) shardIndex(incidentID string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(incidentID))
	return int(h.Sum32() % uint32(len(d.workers)))
}

func (d *Dispatcher) runWorker(ctx context.Context, id int, ch <-chan ports.ChatRequest) {
	depth := metrics.ChatQueueDepth.WithLabelValues(strconv.Itoa(id))
	for {
		select {
		case <-ctx.Done():
			return
		case req, ok := <-ch:
			if !ok {
				return
			}
			depth.Set(float64(len(ch)))
			if _, err := d.chat.Send(ctx, req.IncidentID, req.SenderName, req.Text); err != nil {
				d.log.Debug().Err(err).
					Str("incident_id", req.IncidentID).
					Int("worker_id", id).
					Msg("chat message rejected")
				if req.OnError != nil {
					req.OnError(err)
				}
			}
		}
	}
}
