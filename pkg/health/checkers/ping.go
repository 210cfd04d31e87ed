package checkers

import (
	"context"
	"fmt"
)

// Pinger is satisfied by *pgxpool.Pool and similar connection pools.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingChecker reports the result of Ping.
type PingChecker struct {
	pinger Pinger
	name   string
}

func NewPingChecker(p Pinger, name string) *PingChecker {
	return &PingChecker{pinger: p, name: name}
}

func (p *PingChecker) Name() string { return p.name }

func (p *PingChecker) Check(ctx context.Context) error {
	if err := p.pinger.Ping(ctx); err != nil {
		return fmt.Errorf("%s ping failed: %w", p.name, err)
	}
	return nil
}
