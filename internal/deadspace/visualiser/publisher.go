package visualiser

import (
	"fmt"
	"log"
	"net"
	"sync"
	"sync/atomic"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/banshee-data/deadspace/internal/deadspace/pipeline"
)

// Config holds configuration for the visualiser gRPC server.
type Config struct {
	// ListenAddr is the address Start binds, e.g. "localhost:50051".
	ListenAddr string

	// MaxClients caps concurrent stream clients. Zero means no cap.
	MaxClients int

	// QueueSize is the depth of the publish queue and of each client's
	// buffer. Frames beyond it are dropped, never blocking a worker.
	QueueSize int
}

// DefaultConfig returns a default configuration.
func DefaultConfig() Config {
	return Config{
		ListenAddr: "localhost:50051",
		MaxClients: 5,
		QueueSize:  100,
	}
}

// Publisher fans classified frames out to stream clients. It is a
// pipeline.Observer; workers hand it frames concurrently and it never
// blocks them.
type Publisher struct {
	config   Config
	server   *grpc.Server
	listener net.Listener

	frameChan chan FrameUpdate
	clients   map[uint64]*clientStream
	clientsMu sync.RWMutex
	nextID    atomic.Uint64

	frameCount    atomic.Uint64
	sentFrames    atomic.Uint64
	droppedFrames atomic.Uint64
	clientCount   atomic.Int32

	running atomic.Bool
	stopCh  chan struct{}
	wg      sync.WaitGroup
}

var _ pipeline.Observer = (*Publisher)(nil)

type clientStream struct {
	id         uint64
	activeOnly bool
	frameCh    chan FrameUpdate
}

// NewPublisher creates a new Publisher with the given configuration.
func NewPublisher(cfg Config) *Publisher {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = DefaultConfig().QueueSize
	}
	return &Publisher{
		config:    cfg,
		frameChan: make(chan FrameUpdate, cfg.QueueSize),
		clients:   make(map[uint64]*clientStream),
		stopCh:    make(chan struct{}),
	}
}

// Start binds Config.ListenAddr and serves on it.
func (p *Publisher) Start() error {
	lis, err := net.Listen("tcp", p.config.ListenAddr)
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}
	if err := p.Serve(lis); err != nil {
		lis.Close()
		return err
	}
	return nil
}

// Serve registers the service on a new gRPC server and serves lis in the
// background until Stop.
func (p *Publisher) Serve(lis net.Listener) error {
	if !p.running.CompareAndSwap(false, true) {
		return fmt.Errorf("publisher already running")
	}
	p.listener = lis
	p.server = grpc.NewServer()
	RegisterServer(p.server, NewServer(p))

	p.wg.Add(2)
	go p.broadcastLoop()
	go func() {
		defer p.wg.Done()
		log.Printf("[Visualiser] gRPC server listening on %s", lis.Addr())
		if err := p.server.Serve(lis); err != nil && p.running.Load() {
			log.Printf("[Visualiser] gRPC server error: %v", err)
		}
	}()
	return nil
}

// Addr returns the bound address, or "" before Start.
func (p *Publisher) Addr() string {
	if p.listener == nil {
		return ""
	}
	return p.listener.Addr().String()
}

// Stop ends every stream and waits for the server to drain.
func (p *Publisher) Stop() {
	if !p.running.CompareAndSwap(true, false) {
		return
	}
	close(p.stopCh)
	p.server.GracefulStop()
	p.wg.Wait()
	log.Printf("[Visualiser] gRPC server stopped (frames=%d sent=%d dropped=%d)",
		p.frameCount.Load(), p.sentFrames.Load(), p.droppedFrames.Load())
}

// FrameClassified implements pipeline.Observer.
func (p *Publisher) FrameClassified(ev pipeline.FrameEvent) {
	p.Publish(UpdateFromEvent(ev))
}

// Publish queues u for every client. A full queue drops the frame.
func (p *Publisher) Publish(u FrameUpdate) {
	if !p.running.Load() {
		return
	}
	select {
	case p.frameChan <- u:
		p.frameCount.Add(1)
	default:
		dropped := p.droppedFrames.Add(1)
		if dropped == 1 || dropped%100 == 0 {
			log.Printf("[Visualiser] DROPPED frame %d (total dropped: %d), queue full", u.Index, dropped)
		}
	}
}

func (p *Publisher) broadcastLoop() {
	defer p.wg.Done()
	for {
		select {
		case <-p.stopCh:
			return
		case u := <-p.frameChan:
			p.broadcast(u)
		}
	}
}

// broadcast hands u to each client, dropping it for clients whose buffer
// is full.
func (p *Publisher) broadcast(u FrameUpdate) {
	p.clientsMu.RLock()
	defer p.clientsMu.RUnlock()
	for _, c := range p.clients {
		if c.activeOnly && !u.Active {
			continue
		}
		select {
		case c.frameCh <- u:
		default:
			p.droppedFrames.Add(1)
		}
	}
}

func (p *Publisher) addClient(activeOnly bool) (*clientStream, error) {
	p.clientsMu.Lock()
	defer p.clientsMu.Unlock()
	if p.config.MaxClients > 0 && len(p.clients) >= p.config.MaxClients {
		return nil, status.Errorf(codes.ResourceExhausted, "visualiser already has %d clients", len(p.clients))
	}
	c := &clientStream{
		id:         p.nextID.Add(1),
		activeOnly: activeOnly,
		frameCh:    make(chan FrameUpdate, p.config.QueueSize),
	}
	p.clients[c.id] = c
	n := p.clientCount.Add(1)
	log.Printf("[Visualiser] Client connected: %d (total: %d)", c.id, n)
	return c, nil
}

func (p *Publisher) removeClient(id uint64) {
	p.clientsMu.Lock()
	_, ok := p.clients[id]
	delete(p.clients, id)
	p.clientsMu.Unlock()
	if ok {
		n := p.clientCount.Add(-1)
		log.Printf("[Visualiser] Client disconnected: %d (remaining: %d)", id, n)
	}
}

// Stats returns current publisher statistics.
func (p *Publisher) Stats() PublisherStats {
	return PublisherStats{
		FrameCount:    p.frameCount.Load(),
		SentFrames:    p.sentFrames.Load(),
		DroppedFrames: p.droppedFrames.Load(),
		ClientCount:   p.clientCount.Load(),
		Running:       p.running.Load(),
	}
}
