package carnet

import (
	"context"
	"strings"
	"sync"
	"time"

	internalflows "github.com/carnet-digital/carnet/internal/flows"
)

type stateCache struct {
	mu      sync.Mutex
	states  internalflows.AccountStates
	expires time.Time
	valid   bool
}

func (c *stateCache) get(now time.Time) (internalflows.AccountStates, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.valid || !now.Before(c.expires) {
		return internalflows.AccountStates{}, false
	}
	return c.states, true
}

func (c *stateCache) put(states internalflows.AccountStates, expires time.Time) {
	c.mu.Lock()
	c.states, c.expires, c.valid = states, expires, true
	c.mu.Unlock()
}

// resolveStates maps the configured active/blocked state names to catalog
// codes. Names match case-insensitively; configured codes fill the gaps.
func (e *Engine) resolveStates(ctx context.Context) (internalflows.AccountStates, error) {
	now := e.now()
	if states, ok := e.states.get(now); ok {
		return states, nil
	}

	cfg := e.config.Lockout
	states := internalflows.AccountStates{Active: cfg.ActiveStateCode, Blocked: cfg.BlockedStateCode}

	list, err := e.catalog.States(ctx)
	if err != nil {
		// A catalog outage must not stop logins when both codes are configured.
		if states.Active != 0 && (states.Blocked != 0 || !cfg.Enabled) {
			e.logger.WithError(err).Warn("state catalog unavailable, using configured codes")
			return states, nil
		}
		return internalflows.AccountStates{}, err
	}

	active := strings.TrimSpace(cfg.ActiveStateName)
	blocked := strings.TrimSpace(cfg.BlockedStateName)
	for _, s := range list {
		name := strings.TrimSpace(s.Name)
		switch {
		case active != "" && strings.EqualFold(name, active):
			states.Active = s.Code
		case blocked != "" && strings.EqualFold(name, blocked):
			states.Blocked = s.Code
		}
	}

	if states.Active == 0 || (cfg.Enabled && states.Blocked == 0) {
		return internalflows.AccountStates{}, ErrStateUnresolved
	}

	if cfg.StateCacheTTL > 0 {
		e.states.put(states, now.Add(cfg.StateCacheTTL))
	}
	return states, nil
}
