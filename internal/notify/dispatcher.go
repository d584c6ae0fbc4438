package notify

import (
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nerrad567/gray-logic-gather/internal/bridges/gather"
	"github.com/nerrad567/gray-logic-gather/internal/presence"
)

// DefaultQueueSize is used when Options.QueueSize is zero.
const DefaultQueueSize = 64

// eventQoS is the MQTT QoS for notifications.
const eventQoS = 1

// Publisher publishes MQTT messages. Satisfied by *mqtt.Client.
type Publisher interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
}

// Broadcaster relays events to WebSocket clients. Satisfied by *api.Hub.
type Broadcaster interface {
	Broadcast(channel string, payload any)
}

// MetricsWriter records delivery metrics. Satisfied by *influxdb.Client.
type MetricsWriter interface {
	WriteNotification(event string, delivered bool)
	WriteConnectionState(spaceID string, connected bool)
}

// Logger is the logging interface used by the dispatcher.
type Logger interface {
	Debug(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Options configures a Dispatcher. Every sink is optional.
type Options struct {
	MQTT    Publisher
	Hub     Broadcaster
	Metrics MetricsWriter
	Logger  Logger

	// SpaceID returns the current space for message envelopes.
	SpaceID func() string

	// QueueSize bounds pending notifications. Default: DefaultQueueSize.
	QueueSize int
}

// Dispatcher is an asynchronous, ordered notification sink.
// It implements presence.Notifier.
type Dispatcher struct {
	mqtt    Publisher
	hub     Broadcaster
	metrics MetricsWriter
	logger  Logger
	spaceID func() string

	mu     sync.RWMutex
	queue  chan presence.Notification
	closed bool

	wg        sync.WaitGroup
	startOnce sync.Once
	stopOnce  sync.Once

	delivered atomic.Uint64
	dropped   atomic.Uint64
	failed    atomic.Uint64
}

// New creates a dispatcher. Call Start to begin delivering.
func New(opts Options) *Dispatcher {
	size := opts.QueueSize
	if size <= 0 {
		size = DefaultQueueSize
	}
	logger := opts.Logger
	if logger == nil {
		logger = noopLogger{}
	}
	spaceID := opts.SpaceID
	if spaceID == nil {
		spaceID = func() string { return "" }
	}

	return &Dispatcher{
		mqtt:    opts.MQTT,
		hub:     opts.Hub,
		metrics: opts.Metrics,
		logger:  logger,
		spaceID: spaceID,
		queue:   make(chan presence.Notification, size),
	}
}

// Start launches the delivery worker. It runs until Close.
func (d *Dispatcher) Start() {
	d.startOnce.Do(func() {
		d.wg.Add(1)
		go d.run()
	})
}

// Notify queues n for delivery. It never blocks: when the queue is full or
// the dispatcher is closed the notification is dropped and logged.
func (d *Dispatcher) Notify(n presence.Notification) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		d.dropped.Add(1)
		d.logger.Warn("notification dropped after close", "event", n.Event)
		return
	}

	select {
	case d.queue <- n:
	default:
		d.dropped.Add(1)
		d.logger.Error("notification dropped", "event", n.Event, "error", ErrQueueFull)
	}
}

// Close stops accepting notifications, delivers what is queued and waits
// for the worker. Safe to call multiple times.
func (d *Dispatcher) Close() {
	d.stopOnce.Do(func() {
		d.mu.Lock()
		d.closed = true
		close(d.queue)
		d.mu.Unlock()

		// Drain directly when the worker was never started.
		d.startOnce.Do(func() {
			d.wg.Add(1)
			go d.run()
		})
		d.wg.Wait()
	})
}

// DeliveryStats returns the delivery counters.
func (d *Dispatcher) DeliveryStats() gather.DeliveryStats {
	return gather.DeliveryStats{
		Delivered: d.delivered.Load(),
		Dropped:   d.dropped.Load(),
		Failed:    d.failed.Load(),
	}
}

func (d *Dispatcher) run() {
	defer d.wg.Done()
	for n := range d.queue {
		d.dispatch(n)
	}
}

// dispatch delivers one notification and records the outcome.
func (d *Dispatcher) dispatch(n presence.Notification) {
	err := d.deliver(n)

	if d.metrics != nil {
		d.metrics.WriteNotification(n.Event, err == nil)
		if cs, ok := n.Payload.(presence.ConnectionStatus); ok {
			d.metrics.WriteConnectionState(d.spaceID(), cs.Connected)
		}
	}

	if err != nil {
		d.failed.Add(1)
		d.logger.Error("notification delivery failed",
			"event", n.Event,
			"error", fmt.Errorf("%w: %w", ErrDispatch, err),
		)
		return
	}
	d.delivered.Add(1)
	d.logger.Debug("notification delivered", "event", n.Event)
}

func (d *Dispatcher) deliver(n presence.Notification) error {
	msg := gather.EventMessage{
		Event:     n.Event,
		SpaceID:   d.spaceID(),
		Timestamp: time.Now().UTC(),
		Payload:   n.Payload,
	}

	if d.hub != nil {
		d.hub.Broadcast(n.Event, msg)
	}

	if d.mqtt == nil {
		return nil
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", n.Event, err)
	}

	var g errgroup.Group
	g.Go(func() error {
		if err := d.mqtt.Publish(gather.EventTopic(n.Event), payload, eventQoS, false); err != nil {
			return fmt.Errorf("publishing event: %w", err)
		}
		return nil
	})
	if gather.RetainedEvent(n.Event) {
		g.Go(func() error {
			if err := d.mqtt.Publish(gather.StateTopic(n.Event), payload, eventQoS, true); err != nil {
				return fmt.Errorf("publishing state: %w", err)
			}
			return nil
		})
	}
	return g.Wait()
}

// Compile-time interface checks.
var (
	_ presence.Notifier      = (*Dispatcher)(nil)
	_ gather.DeliveryCounter = (*Dispatcher)(nil)
)
