package domain

import "sort"

// PositionBook maps symbols to the positions of one account snapshot.
type PositionBook struct {
	positions map[string]Position
}

// NewPositionBook builds a book from raw position records. A symbol that
// appears twice keeps the later record.
func NewPositionBook(raw []RawPosition) *PositionBook {
	b := &PositionBook{positions: make(map[string]Position, len(raw))}
	for _, r := range raw {
		p := NewPosition(r)
		b.positions[p.Symbol()] = p
	}
	return b
}

// Lookup returns the position for symbol. ok is false when the account
// holds nothing in it.
func (b *PositionBook) Lookup(symbol string) (Position, bool) {
	p, ok := b.positions[symbol]
	return p, ok
}

// Len returns the number of positions in the book.
func (b *PositionBook) Len() int { return len(b.positions) }

// Positions returns all positions sorted by symbol.
func (b *PositionBook) Positions() []Position {
	out := make([]Position, 0, len(b.positions))
	for _, p := range b.positions {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol() < out[j].Symbol() })
	return out
}
