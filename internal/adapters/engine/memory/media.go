package memory

import (
	"context"
	"sync"

	"github.com/dkeye/mediagate/internal/domain"
)

type Producer struct {
	id     domain.ProducerID
	router *Router
	kind   domain.MediaKind
	rtp    domain.RtpParameters

	mu     sync.Mutex
	closed bool
}

func (p *Producer) ID() domain.ProducerID               { return p.id }
func (p *Producer) Kind() domain.MediaKind              { return p.kind }
func (p *Producer) RtpParameters() domain.RtpParameters { return p.rtp.Clone() }

func (p *Producer) isClosed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

func (p *Producer) Close() error {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()
	return nil
}

type Consumer struct {
	id   domain.ConsumerID
	kind domain.MediaKind
	rtp  domain.RtpParameters

	mu     sync.Mutex
	paused bool
	closed bool
}

func (c *Consumer) ID() domain.ConsumerID               { return c.id }
func (c *Consumer) Kind() domain.MediaKind              { return c.kind }
func (c *Consumer) RtpParameters() domain.RtpParameters { return c.rtp.Clone() }

func (c *Consumer) Paused() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.paused
}

func (c *Consumer) Resume(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	c.paused = false
	return nil
}

func (c *Consumer) Close() error {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	return nil
}
