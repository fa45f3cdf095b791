// Package rtc is the media engine built on pion's ORTC objects. Every
// transport is an ICE-lite gatherer, an ICE transport and a DTLS transport;
// producers are RTP receivers and consumers are RTP senders fed by a relay.
package rtc

import (
	"context"
	"fmt"
	"io"
	"net"
	"sync"

	"github.com/dkeye/mediagate/internal/core"
	"github.com/dkeye/mediagate/internal/domain"
	"github.com/google/uuid"
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"
)

type Options struct {
	ListenIP    string
	AnnouncedIP string
	MinPort     uint16
	MaxPort     uint16
	// TCPPort enables ICE over TCP on a shared listener when > 0.
	TCPPort int
}

type Engine struct {
	settings webrtc.SettingEngine
	tcp      net.Listener
	tcpMux   io.Closer

	mu      sync.Mutex
	done    chan struct{}
	stopped bool
	routers map[string]*Router
}

func New(opts Options) (*Engine, error) {
	se := webrtc.SettingEngine{LoggerFactory: LoggerFactory{}}
	se.SetLite(true)
	if opts.MinPort != 0 || opts.MaxPort != 0 {
		if err := se.SetEphemeralUDPPortRange(opts.MinPort, opts.MaxPort); err != nil {
			return nil, fmt.Errorf("rtc: port range: %w", err)
		}
	}
	if opts.AnnouncedIP != "" {
		se.SetNAT1To1IPs([]string{opts.AnnouncedIP}, webrtc.ICECandidateTypeHost)
	}
	if ip := net.ParseIP(opts.ListenIP); ip != nil && !ip.IsUnspecified() {
		se.SetIPFilter(func(candidate net.IP) bool { return candidate.Equal(ip) })
	}

	e := &Engine{
		done:    make(chan struct{}),
		routers: make(map[string]*Router),
	}
	if opts.TCPPort > 0 {
		ln, err := net.Listen("tcp", net.JoinHostPort(opts.ListenIP, fmt.Sprint(opts.TCPPort)))
		if err != nil {
			return nil, fmt.Errorf("rtc: ice tcp listener: %w", err)
		}
		mux := webrtc.NewICETCPMux(LoggerFactory{}.NewLogger("ice-tcp"), ln, 8)
		se.SetICETCPMux(mux)
		e.tcp = ln
		e.tcpMux = mux
	}
	e.settings = se

	log.Info().
		Str("module", "engine.rtc").
		Str("listen_ip", opts.ListenIP).
		Str("announced_ip", opts.AnnouncedIP).
		Uint16("min_port", opts.MinPort).
		Uint16("max_port", opts.MaxPort).
		Int("tcp_port", opts.TCPPort).
		Msg("pion engine started")
	return e, nil
}

// settingsFor narrows the engine settings to the networks cfg enables.
func (e *Engine) settingsFor(cfg core.ListenConfig) webrtc.SettingEngine {
	se := e.settings
	var networks []webrtc.NetworkType
	if cfg.EnableUDP {
		networks = append(networks, webrtc.NetworkTypeUDP4)
	}
	if cfg.EnableTCP && e.tcpMux != nil {
		networks = append(networks, webrtc.NetworkTypeTCP4)
	}
	if !cfg.PreferUDP && len(networks) == 2 {
		networks[0], networks[1] = networks[1], networks[0]
	}
	if len(networks) > 0 {
		se.SetNetworkTypes(networks)
	}
	return se
}

func (e *Engine) Done() <-chan struct{} { return e.done }

// Err is always nil: the engine lives in-process and only stops on Close.
func (e *Engine) Err() error { return nil }

func (e *Engine) CreateRouter(ctx context.Context, codecs []domain.RtpCodecCapability) (core.EngineRouter, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.stopped {
		return nil, fmt.Errorf("%w: pion engine stopped", core.ErrEngineUnavailable)
	}
	r, err := newRouter(e, uuid.NewString(), codecs)
	if err != nil {
		return nil, err
	}
	e.routers[r.id] = r
	log.Debug().Str("module", "engine.rtc").Str("router", r.id).Msg("router created")
	return r, nil
}

func (e *Engine) alive() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return !e.stopped
}

func (e *Engine) dropRouter(id string) {
	e.mu.Lock()
	delete(e.routers, id)
	e.mu.Unlock()
}

func (e *Engine) Close() error {
	e.mu.Lock()
	if e.stopped {
		e.mu.Unlock()
		return nil
	}
	e.stopped = true
	routers := make([]*Router, 0, len(e.routers))
	for _, r := range e.routers {
		routers = append(routers, r)
	}
	e.mu.Unlock()

	for _, r := range routers {
		_ = r.Close()
	}
	if e.tcpMux != nil {
		_ = e.tcpMux.Close()
		_ = e.tcp.Close()
	}
	close(e.done)
	log.Info().Str("module", "engine.rtc").Msg("pion engine stopped")
	return nil
}
