package udp

import (
	"log"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/BorjaTR/sentinel-hft/collector/format"
	"github.com/BorjaTR/sentinel-hft/collector/model"
	"github.com/BorjaTR/sentinel-hft/collector/seq"
)

const (
	maxDatagramSize = 65535
	readTimeout     = 1 * time.Second
)

// Stats is a point-in-time copy of the collector's counters.
type Stats struct {
	PacketsReceived  uint64      `json:"packets_received"`
	PacketsInvalid   uint64      `json:"packets_invalid"`
	PacketsCRCFailed uint64      `json:"packets_crc_failed"`
	TracesReceived   uint64      `json:"traces_received"`
	Drops            seq.Summary `json:"drops"`
}

// Collector listens for trace datagrams on its own goroutine. Validated
// record batches go out through OnTraces; lost-packet detections through
// OnDrop. Callbacks run on the receive goroutine, so a consumer that shares
// state with other goroutines must synchronize on its side — the recommended
// shape is one analyzer per collector, snapshots merged downstream.
type Collector struct {
	Addr     string
	Adapter  format.Adapter
	OnTraces func([]model.StandardTrace)
	OnDrop   func(coreID uint16, expectedSeq, actualSeq uint32)

	conn    *net.UDPConn
	stop    chan struct{}
	done    chan struct{}
	started bool

	packetsReceived  atomic.Uint64
	packetsInvalid   atomic.Uint64
	packetsCRCFailed atomic.Uint64
	tracesReceived   atomic.Uint64

	// packet-level sequence tracking, independent of any record-level
	// tracker the consumer runs
	mu      sync.Mutex
	tracker *seq.Tracker
}

// NewCollector returns a collector bound to addr (host:port) decoding
// payload records with adapter. Call Start to begin receiving.
func NewCollector(addr string, adapter format.Adapter) *Collector {
	if adapter == nil {
		adapter = format.V11Adapter{}
	}
	return &Collector{
		Addr:    addr,
		Adapter: adapter,
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
		tracker: seq.NewTracker(),
	}
}

// Start binds the socket and launches the receive loop.
func (c *Collector) Start() error {
	udpAddr, err := net.ResolveUDPAddr("udp", c.Addr)
	if err != nil {
		return err
	}
	conn, err := net.ListenUDP("udp", udpAddr)
	if err != nil {
		return err
	}
	c.conn = conn
	c.started = true

	go c.receiveLoop()
	log.Printf("udp: collector listening on %s", conn.LocalAddr())
	return nil
}

// LocalAddr reports the bound address; useful when Addr requested port 0.
func (c *Collector) LocalAddr() net.Addr {
	if c.conn == nil {
		return nil
	}
	return c.conn.LocalAddr()
}

// Stop signals the receive loop and waits for it to exit; the loop notices
// within one read timeout.
func (c *Collector) Stop() {
	if !c.started {
		return
	}
	close(c.stop)
	<-c.done
	c.conn.Close()
	log.Printf("udp: collector stopped")
}

func (c *Collector) receiveLoop() {
	defer close(c.done)
	buf := make([]byte, maxDatagramSize)
	for {
		select {
		case <-c.stop:
			return
		default:
		}

		c.conn.SetReadDeadline(time.Now().Add(readTimeout))
		n, _, err := c.conn.ReadFromUDP(buf)
		if err != nil {
			if nerr, ok := err.(net.Error); ok && nerr.Timeout() {
				continue
			}
			select {
			case <-c.stop:
				return
			default:
				log.Printf("udp: receive error: %v", err)
				continue
			}
		}
		c.HandlePacket(buf[:n])
	}
}

// HandlePacket validates and decodes one datagram. Exported so tests and
// replay tooling can drive the collector without a socket.
func (c *Collector) HandlePacket(data []byte) {
	c.packetsReceived.Add(1)

	if len(data) < PacketHeaderSize {
		log.Printf("udp: packet too small: %d bytes", len(data))
		c.packetsInvalid.Add(1)
		return
	}

	header, err := DecodePacketHeader(data)
	if err != nil {
		c.packetsInvalid.Add(1)
		return
	}
	if header.Magic != PacketMagic {
		log.Printf("udp: invalid magic: 0x%08X", header.Magic)
		c.packetsInvalid.Add(1)
		return
	}

	payload := data[PacketHeaderSize:]
	if !header.VerifyPayload(payload) {
		log.Printf("udp: crc mismatch on packet from core %d", header.CoreID)
		c.packetsCRCFailed.Add(1)
		return
	}

	c.mu.Lock()
	drop := c.tracker.Check(header.CoreID, header.SeqStart, 0)
	c.mu.Unlock()
	if drop != nil && c.OnDrop != nil {
		c.OnDrop(header.CoreID, drop.ExpectedSeq, drop.ActualSeq)
	}

	traces := c.decodeTraces(payload)
	c.tracesReceived.Add(uint64(len(traces)))
	if len(traces) > 0 && c.OnTraces != nil {
		c.OnTraces(traces)
	}
}

// decodeTraces walks the payload in record-size chunks. Bad chunks are
// skipped with a warning; the rest of the packet still decodes.
func (c *Collector) decodeTraces(payload []byte) []model.StandardTrace {
	size := c.Adapter.RecordSize()
	if size == 0 {
		return nil
	}
	traces := make([]model.StandardTrace, 0, len(payload)/size)
	skipped, err := format.DecodeAll(c.Adapter, payload, func(t model.StandardTrace) {
		traces = append(traces, t)
	})
	if err != nil {
		log.Printf("udp: %v", err)
		return nil
	}
	if skipped > 0 {
		log.Printf("udp: skipped %d undecodable records in packet", skipped)
	}
	return traces
}

// Stats copies out the collector's counters.
func (c *Collector) Stats() Stats {
	c.mu.Lock()
	drops := c.tracker.Summary()
	c.mu.Unlock()
	return Stats{
		PacketsReceived:  c.packetsReceived.Load(),
		PacketsInvalid:   c.packetsInvalid.Load(),
		PacketsCRCFailed: c.packetsCRCFailed.Load(),
		TracesReceived:   c.tracesReceived.Load(),
		Drops:            drops,
	}
}
