// Package cart holds the in-progress purchase list of one transaction.
package cart

import (
	"fmt"

	"github.com/fjod/go_pos/internal/domain"
)

// Manager is the only writer of the cart. It is not safe for concurrent use; callers
// serialize operator actions.
type Manager struct {
	lines []domain.CartLine
}

func NewManager() *Manager {
	return &Manager{}
}

// Add appends a new line with quantity 1. Same-code products are not merged.
func (m *Manager) Add(product domain.Product) {
	m.lines = append(m.lines, domain.CartLine{Product: product, Quantity: 1})
}

// UpdateQuantity replaces the quantity of the line at index. A quantity below 1 is
// rejected silently: the cart is left as is and applied is false.
func (m *Manager) UpdateQuantity(index, quantity int) (applied bool, err error) {
	if quantity < 1 {
		return false, nil
	}
	if err := m.checkIndex(index); err != nil {
		return false, err
	}
	m.lines[index].Quantity = quantity
	return true, nil
}

// Remove deletes the line at index. Later lines shift down by one, so indices held
// across an Add or Remove must be re-derived.
func (m *Manager) Remove(index int) error {
	if err := m.checkIndex(index); err != nil {
		return err
	}
	m.lines = append(m.lines[:index], m.lines[index+1:]...)
	return nil
}

// Total is the sum of price times quantity over all lines.
func (m *Manager) Total() int64 {
	var total int64
	for _, l := range m.lines {
		total += l.Subtotal()
	}
	return total
}

func (m *Manager) Clear() {
	m.lines = nil
}

// Lines returns a copy of the cart in insertion order.
func (m *Manager) Lines() []domain.CartLine {
	out := make([]domain.CartLine, len(m.lines))
	copy(out, m.lines)
	return out
}

func (m *Manager) Line(index int) (domain.CartLine, error) {
	if err := m.checkIndex(index); err != nil {
		return domain.CartLine{}, err
	}
	return m.lines[index], nil
}

func (m *Manager) Len() int {
	return len(m.lines)
}

func (m *Manager) IsEmpty() bool {
	return len(m.lines) == 0
}

func (m *Manager) checkIndex(index int) error {
	if index < 0 || index >= len(m.lines) {
		return fmt.Errorf("%w: %d (cart has %d lines)", domain.ErrIndexOutOfRange, index, len(m.lines))
	}
	return nil
}
