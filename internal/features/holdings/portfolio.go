package holdings

// In-memory view of what the monitored wallet holds, built from its own
// trades and repriced by everyone else's.

import (
	"math"
	"sort"
	"sync"
	"time"
)

// Change describes what ApplyTrade did to a position.
type Change int

const (
	ChangeIgnored Change = iota
	ChangeOpened
	ChangeIncreased
	ChangeReduced
	ChangeClosed
)

func (c Change) String() string {
	switch c {
	case ChangeOpened:
		return "opened"
	case ChangeIncreased:
		return "increased"
	case ChangeReduced:
		return "reduced"
	case ChangeClosed:
		return "closed"
	default:
		return "ignored"
	}
}

// Direction of a price move relative to the average buy price.
type Direction int

const (
	DirectionNone Direction = iota
	DirectionUp
	DirectionDown
)

func (d Direction) String() string {
	switch d {
	case DirectionUp:
		return "up"
	case DirectionDown:
		return "down"
	default:
		return "none"
	}
}

// Trade is one fill by the monitored wallet.
type Trade struct {
	Mint        string
	IsBuy       bool
	TokenAmount uint64  // raw units
	Price       float64 // SOL per UI token
	Decimals    int     // 0 uses the portfolio default
	At          time.Time
}

type Portfolio struct {
	mu              sync.Mutex
	holdings        map[string]*Holding
	alerted         map[string]map[Direction]bool
	minHolding      float64 // UI tokens
	defaultDecimals int
	now             func() time.Time
}

func NewPortfolio(minHolding float64, defaultDecimals int) *Portfolio {
	return &Portfolio{
		holdings:        make(map[string]*Holding),
		alerted:         make(map[string]map[Direction]bool),
		minHolding:      minHolding,
		defaultDecimals: defaultDecimals,
		now:             time.Now,
	}
}

func (p *Portfolio) MinHolding() float64 { return p.minHolding }

// ApplyTrade folds a buy or sell into the position for its mint.
func (p *Portfolio) ApplyTrade(t Trade) (Holding, Change) {
	p.mu.Lock()
	defer p.mu.Unlock()

	at := t.At
	if at.IsZero() {
		at = p.now()
	}

	h, ok := p.holdings[t.Mint]
	if t.IsBuy {
		change := ChangeIncreased
		if !ok {
			decimals := t.Decimals
			if decimals <= 0 {
				decimals = p.defaultDecimals
			}
			h = &Holding{Mint: t.Mint, Decimals: decimals, OpenedAt: at}
			p.holdings[t.Mint] = h
			change = ChangeOpened
		}
		h.TotalCost += float64(t.TokenAmount) / math.Pow10(h.Decimals) * t.Price
		h.Amount += t.TokenAmount
		if t.Price > 0 {
			h.CurrentPrice = t.Price
		}
		h.UpdatedAt = at
		return *h, change
	}

	if !ok {
		return Holding{}, ChangeIgnored
	}

	if h.Amount > 0 {
		ratio := math.Min(float64(t.TokenAmount)/float64(h.Amount), 1)
		h.TotalCost *= 1 - ratio
	}
	if t.TokenAmount >= h.Amount {
		h.Amount = 0
	} else {
		h.Amount -= t.TokenAmount
	}
	if t.Price > 0 {
		h.CurrentPrice = t.Price
	}
	h.UpdatedAt = at

	if h.UIAmount() < p.minHolding || h.Amount == 0 {
		p.closeLocked(t.Mint)
		return *h, ChangeClosed
	}
	return *h, ChangeReduced
}

// UpdatePrice reprices a held mint. Zero prices are ignored and positions
// below the minimum are dropped instead of updated.
func (p *Portfolio) UpdatePrice(mint string, price float64, at time.Time) (Holding, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	h, ok := p.holdings[mint]
	if !ok || price <= 0 {
		return Holding{}, false
	}
	if h.UIAmount() < p.minHolding {
		p.closeLocked(mint)
		return Holding{}, false
	}
	if at.IsZero() {
		at = p.now()
	}
	h.CurrentPrice = price
	h.UpdatedAt = at
	return *h, true
}

// Prune drops every position below the minimum and returns what it removed.
func (p *Portfolio) Prune() []Holding {
	p.mu.Lock()
	defer p.mu.Unlock()

	var removed []Holding
	for mint, h := range p.holdings {
		if h.UIAmount() < p.minHolding {
			removed = append(removed, *h)
			p.closeLocked(mint)
		}
	}
	sort.Slice(removed, func(i, j int) bool { return removed[i].Mint < removed[j].Mint })
	return removed
}

func (p *Portfolio) closeLocked(mint string) {
	delete(p.holdings, mint)
	delete(p.alerted, mint)
}

func (p *Portfolio) Holds(mint string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.holdings[mint]
	return ok
}

func (p *Portfolio) Get(mint string) (Holding, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	h, ok := p.holdings[mint]
	if !ok {
		return Holding{}, false
	}
	return *h, true
}

// Mints returns the held mints in lexical order.
func (p *Portfolio) Mints() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	mints := make([]string, 0, len(p.holdings))
	for m := range p.holdings {
		mints = append(mints, m)
	}
	sort.Strings(mints)
	return mints
}

func (p *Portfolio) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.holdings)
}

// Snapshot copies all positions, largest value first.
func (p *Portfolio) Snapshot() []Holding {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.snapshotLocked()
}

func (p *Portfolio) snapshotLocked() []Holding {
	out := make([]Holding, 0, len(p.holdings))
	for _, h := range p.holdings {
		out = append(out, *h)
	}
	sort.Slice(out, func(i, j int) bool {
		vi, vj := out[i].Value(), out[j].Value()
		if vi != vj {
			return vi > vj
		}
		return out[i].Mint < out[j].Mint
	})
	return out
}

func (p *Portfolio) Summary() Summary {
	p.mu.Lock()
	defer p.mu.Unlock()
	return summarize(p.snapshotLocked())
}

// Summarize aggregates an existing snapshot.
func Summarize(snapshot []Holding) Summary {
	return summarize(snapshot)
}

// AlertDue reports whether mint moved more than threshold percent and has
// not been alerted in that direction since it was opened.
func (p *Portfolio) AlertDue(mint string, threshold float64) (Direction, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	h, ok := p.holdings[mint]
	if !ok {
		return DirectionNone, false
	}
	change := h.MovePercent()
	var dir Direction
	switch {
	case change > threshold:
		dir = DirectionUp
	case change < -threshold:
		dir = DirectionDown
	default:
		return DirectionNone, false
	}
	if p.alerted[mint][dir] {
		return dir, false
	}
	return dir, true
}

// MarkAlerted records a delivered alert. Marks on mints that are no longer
// held are dropped.
func (p *Portfolio) MarkAlerted(mint string, dir Direction) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.holdings[mint]; !ok {
		return
	}
	marks, ok := p.alerted[mint]
	if !ok {
		marks = make(map[Direction]bool, 2)
		p.alerted[mint] = marks
	}
	marks[dir] = true
}

// Alerted reports whether mint was alerted in dir since it was opened.
func (p *Portfolio) Alerted(mint string, dir Direction) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.alerted[mint][dir]
}
