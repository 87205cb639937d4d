package feed

import (
	"context"
	"slices"
	"sync"

	"github.com/Shugur-Network/feedsync/internal/models"
)

// State is where a Paginator is in its load cycle.
type State int

const (
	Idle State = iota
	Loading
	Ready
	Appending
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Loading:
		return "loading"
	case Ready:
		return "ready"
	case Appending:
		return "appending"
	}
	return "unknown"
}

// Watcher produces live pages for a query.
type Watcher interface {
	Watch(ctx context.Context, q models.PageQuery) <-chan models.FeedPage
}

// Paginator keeps a growing, live list of feed items for one setting.
// Earlier pages are frozen once the next one is appended. Only the newest
// page keeps following store changes.
type Paginator struct {
	watcher Watcher
	size    int

	mu      sync.Mutex
	state   State
	setting models.FeedSetting
	frozen  []models.FeedItem
	live    []models.FeedItem
	cursor  Cursor
	gen     uint64
	cancel  context.CancelFunc
	parent  context.Context
	updates chan struct{}
	wg      sync.WaitGroup
}

// NewPaginator creates an idle paginator loading size items per page.
func NewPaginator(watcher Watcher, size int) *Paginator {
	return &Paginator{
		watcher: watcher,
		size:    size,
		updates: make(chan struct{}, 1),
	}
}

// Updates signals after every change to Items or State.
func (p *Paginator) Updates() <-chan struct{} {
	return p.updates
}

// State returns the current state.
func (p *Paginator) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Items returns every item loaded so far, newest first.
func (p *Paginator) Items() []models.FeedItem {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]models.FeedItem, 0, len(p.frozen)+len(p.live))
	out = append(out, p.frozen...)
	return append(out, p.live...)
}

// Cursor returns the position the next Append continues from.
func (p *Paginator) Cursor() Cursor {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cursor
}

// Init starts loading setting from the head of the feed. Any earlier
// setting is dropped.
func (p *Paginator) Init(ctx context.Context, setting models.FeedSetting) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.parent = ctx
	p.setting = setting
	p.restartLocked()
}

// Refresh reloads the current setting from the head of the feed.
func (p *Paginator) Refresh() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state == Idle {
		return
	}
	p.restartLocked()
}

// Append loads the page after the last item. It reports false and does
// nothing unless the paginator is Ready.
func (p *Paginator) Append() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state != Ready {
		return false
	}
	if p.cursor.IsZero() {
		return false
	}
	p.frozen = append(p.frozen, p.live...)
	p.live = nil
	p.state = Appending
	p.startLocked(p.cursor)
	p.signal()
	return true
}

// Close stops the running watch and returns to Idle.
func (p *Paginator) Close() {
	p.mu.Lock()
	p.stopLocked()
	p.state = Idle
	p.frozen, p.live, p.cursor = nil, nil, Cursor{}
	p.mu.Unlock()
	p.wg.Wait()
}

func (p *Paginator) restartLocked() {
	p.frozen, p.live, p.cursor = nil, nil, Cursor{}
	p.state = Loading
	p.startLocked(Cursor{})
	p.signal()
}

func (p *Paginator) stopLocked() {
	if p.cancel != nil {
		p.cancel()
		p.cancel = nil
	}
	p.gen++
}

// startLocked replaces the running watch with one starting at from.
func (p *Paginator) startLocked(from Cursor) {
	p.stopLocked()
	ctx, cancel := context.WithCancel(p.parent)
	p.cancel = cancel
	gen := p.gen

	pages := p.watcher.Watch(ctx, models.PageQuery{
		Setting:  p.setting,
		Until:    from.Until,
		BeforeID: from.BeforeID,
		Size:     p.size,
	})

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		for page := range pages {
			p.receive(gen, page)
		}
	}()
}

// receive applies one emission of the watch started as gen.
func (p *Paginator) receive(gen uint64, page models.FeedPage) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if gen != p.gen {
		return
	}
	p.live = slices.Clone(page)
	if len(page) > 0 {
		p.cursor = CursorAfter(page)
	}
	if p.state == Loading || p.state == Appending {
		p.state = Ready
	}
	p.signal()
}

func (p *Paginator) signal() {
	select {
	case p.updates <- struct{}{}:
	default:
	}
}
