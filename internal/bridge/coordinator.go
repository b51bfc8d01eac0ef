// Package bridge coordinates inbound bus commands against the
// bluetoothctl session and owns all connected-device state.
//
// Each operation kind has a single tracking slot: starting an operation
// while one of the same kind is running replaces the slot, and the old
// task keeps running to completion and still publishes its result. Every
// newly connected address gets a background watcher that waits,
// unbounded, for the external disconnect report and then reconciles
// state exactly once.
package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"sync"
	"time"

	"github.com/soundgrid/btbridge/internal/btctl"
	"github.com/soundgrid/btbridge/internal/bus"
)

// ErrNameNotFound reports that a freshly connected address did not
// appear in the available-devices listing, so its friendly name could
// not be resolved.
var ErrNameNotFound = errors.New("bridge: device not present in available listing")

// OpKind identifies one operation class.
type OpKind string

const (
	OpDiscover   OpKind = "discover"
	OpConnect    OpKind = "connect"
	OpDisconnect OpKind = "disconnect"
	OpPair       OpKind = "pair"
	OpTrust      OpKind = "trust"
	OpUntrust    OpKind = "untrust"
	OpRemove     OpKind = "remove"
)

// Session is the slice of the bluetoothctl session the coordinator
// drives. The real implementation serializes command exchanges
// internally; the coordinator relies on that and never interleaves its
// own partial sends.
type Session interface {
	StartDiscovery() (bool, error)
	Connect(addr string) (bool, error)
	Disconnect(addr string) (bool, error)
	Pair(addr string) (bool, error)
	Trust(addr string) (bool, error)
	Untrust(addr string) (bool, error)
	Remove(addr string) (bool, error)
	AvailableDevices() ([]btctl.Device, error)
	PairedDevices() ([]btctl.Device, error)
	WaitForDisconnect(ctx context.Context, addr string) error
}

// Publisher delivers one structured payload to a bus topic.
type Publisher interface {
	Publish(topic string, payload any) error
}

// Subscriber registers a handler for inbound command payloads.
type Subscriber interface {
	Subscribe(topic string, fn func(payload []byte)) error
}

// Settle delays. The wrapped tool has no structured completion signal
// for either case, so the fixed delays stay, named here and shortened in
// tests.
const (
	// discoverSettle is how long discovery keeps running before the
	// post-discovery snapshots are taken.
	discoverSettle = 30 * time.Second

	// disconnectSettle separates the disconnect marker from state
	// reconciliation, giving bluetoothctl time to finish reporting.
	disconnectSettle = 2 * time.Second
)

// task is one in-flight operation. Only its tracking slot is managed;
// the goroutine behind it is never cancelled by a replacement.
type task struct {
	kind OpKind
	addr string
	done chan struct{}
}

// Config carries the per-site settings the coordinator needs.
type Config struct {
	SiteID string
	// Soundcards maps device friendly names to audio service bindings.
	Soundcards map[string]string
}

// Coordinator runs the operations and owns the connection state.
type Coordinator struct {
	session    Session
	pub        Publisher
	topics     bus.Topics
	siteID     string
	soundcards map[string]string
	logger     *log.Logger

	discoverSettle   time.Duration
	disconnectSettle time.Duration

	ctx    context.Context
	cancel context.CancelFunc

	mu        sync.Mutex
	connected *ConnState
	watched   map[string]struct{}
	tasks     map[OpKind]*task
}

// New creates a coordinator around a session and a publisher.
func New(session Session, pub Publisher, cfg Config, logger *log.Logger) *Coordinator {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Coordinator{
		session:          session,
		pub:              pub,
		topics:           bus.Topics{SiteID: cfg.SiteID},
		siteID:           cfg.SiteID,
		soundcards:       cfg.Soundcards,
		logger:           logger,
		discoverSettle:   discoverSettle,
		disconnectSettle: disconnectSettle,
		ctx:              ctx,
		cancel:           cancel,
		connected:        NewConnState(),
		watched:          make(map[string]struct{}),
		tasks:            make(map[OpKind]*task),
	}
}

// Bind subscribes the coordinator to every inbound command topic.
func (c *Coordinator) Bind(sub Subscriber) error {
	if err := sub.Subscribe(c.topics.Command("discover"), func([]byte) {
		c.start(OpDiscover, "", c.runDiscover)
	}); err != nil {
		return err
	}

	ops := map[OpKind]func(string){
		OpConnect:    c.runConnect,
		OpDisconnect: c.runDisconnect,
		OpPair:       c.runPair,
		OpTrust:      c.runTrust,
		OpUntrust:    c.runUntrust,
		OpRemove:     c.runRemove,
	}
	for kind, run := range ops {
		kind, run := kind, run
		err := sub.Subscribe(c.topics.Command(string(kind)), func(payload []byte) {
			var cmd bus.AddrCommand
			if err := json.Unmarshal(payload, &cmd); err != nil {
				c.logger.Printf("Warning: bad %s payload: %v", kind, err)
				return
			}
			if cmd.Addr == "" {
				c.logger.Printf("Warning: %s command without addr ignored", kind)
				return
			}
			c.start(kind, cmd.Addr, func() { run(cmd.Addr) })
		})
		if err != nil {
			return err
		}
	}

	// On-demand snapshot. Read-only, safe concurrently with anything,
	// so it gets no tracking slot.
	return sub.Subscribe(c.topics.Command("deviceLists"), func([]byte) {
		go c.publishDeviceLists()
	})
}

// Stop cancels the background watchers. Running operations finish on
// their own.
func (c *Coordinator) Stop() {
	c.cancel()
}

// Connected returns a copy of the current address-to-name mapping.
func (c *Coordinator) Connected() map[string]string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected.Snapshot()
}

// start tracks fn as the single in-flight task of its kind. A prior
// task of the same kind loses its slot but keeps running and still
// publishes its result whenever it finishes.
func (c *Coordinator) start(kind OpKind, addr string, fn func()) *task {
	t := &task{kind: kind, addr: addr, done: make(chan struct{})}
	c.mu.Lock()
	c.tasks[kind] = t
	c.mu.Unlock()
	go func() {
		defer close(t.done)
		fn()
		c.mu.Lock()
		if c.tasks[kind] == t {
			delete(c.tasks, kind)
		}
		c.mu.Unlock()
	}()
	return t
}

func (c *Coordinator) publish(topic string, payload any) {
	if err := c.pub.Publish(topic, payload); err != nil {
		c.logger.Printf("Warning: publishing to %s: %v", topic, err)
	}
}

// takeConnected removes addr from the store and releases its watcher
// slot. The ok flag guards against double removal: whichever of the
// explicit operation and the disconnect watcher gets here first wins.
func (c *Coordinator) takeConnected(addr string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	name, ok := c.connected.Remove(addr)
	delete(c.watched, addr)
	return name, ok
}

func (c *Coordinator) startSound(name string) {
	if svc, ok := c.soundcards[name]; ok {
		c.publish(c.topics.StartService(), bus.Soundcard{Soundcard: svc})
	}
}

func (c *Coordinator) stopSound(name string) {
	if svc, ok := c.soundcards[name]; ok {
		c.publish(c.topics.StopService(), bus.Soundcard{Soundcard: svc})
	}
}
