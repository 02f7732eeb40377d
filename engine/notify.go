package engine

import "github.com/hupe1980/freeagent/core"

// Subscribe returns a channel of session view snapshots published after
// every committed state change, plus a cancel func that unregisters and
// closes it. Slow consumers never block the loop; updates they cannot buffer
// are dropped in favor of newer ones.
func (e *Engine) Subscribe(sessionID string) (<-chan core.SessionView, func(), error) {
	if _, err := e.store.Get(sessionID); err != nil {
		return nil, nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil, nil, ErrClosed
	}

	ch := make(chan core.SessionView, e.cfg.UpdateBufferSize)
	id := e.nextSubID
	e.nextSubID++
	if e.subs[sessionID] == nil {
		e.subs[sessionID] = make(map[int]chan core.SessionView)
	}
	e.subs[sessionID][id] = ch

	cancel := func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		if chans, ok := e.subs[sessionID]; ok {
			if c, ok := chans[id]; ok {
				delete(chans, id)
				close(c)
			}
		}
	}

	return ch, cancel, nil
}

// publish sends the session's current view to its subscribers without
// blocking.
func (e *Engine) publish(s *core.Session) {
	e.mu.Lock()
	chans := make([]chan core.SessionView, 0, len(e.subs[s.ID()]))
	for _, ch := range e.subs[s.ID()] {
		chans = append(chans, ch)
	}
	e.mu.Unlock()

	if len(chans) == 0 {
		return
	}

	view := s.View()
	for _, ch := range chans {
		select {
		case ch <- view:
		default:
			// drop stale update for slow consumer
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- view:
			default:
			}
		}
	}
}
