package inventory

import (
	"fmt"
	"strings"
)

// Status values are persisted verbatim in tecidos.status.
type Status string

const (
	StatusInOperation Status = "em_operacao"
	StatusReplaced    Status = "substituido"
)

func (s Status) Valid() bool {
	return s == StatusInOperation || s == StatusReplaced
}

// CanTransitionTo allows only em_operacao -> substituido.
func (s Status) CanTransitionTo(next Status) bool {
	return s == StatusInOperation && next == StatusReplaced
}

// Position is the physical slot (filter, board, side) that holds at most one
// fabric in operation.
type Position struct {
	Filter int
	Board  int
	Side   string
}

func NewPosition(filter int, board int, side string) (Position, error) {
	p := Position{Filter: filter, Board: board, Side: strings.TrimSpace(side)}
	if err := p.Validate(); err != nil {
		return Position{}, err
	}
	return p, nil
}

func (p Position) Validate() error {
	if p.Filter < 1 {
		return fmt.Errorf("%w: filter must be >= 1, got %d", ErrInvalidPosition, p.Filter)
	}
	if p.Board < 1 {
		return fmt.Errorf("%w: board must be >= 1, got %d", ErrInvalidPosition, p.Board)
	}
	if strings.TrimSpace(p.Side) == "" {
		return fmt.Errorf("%w: side is required", ErrInvalidPosition)
	}
	return nil
}

func (p Position) String() string {
	return fmt.Sprintf("F%d/P%d/%s", p.Filter, p.Board, p.Side)
}
