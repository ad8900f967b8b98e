package nav

// Controller tracks which question slot is on screen. Exactly one index in
// [0, total) is visible at a time; moves past either edge are clamped no-ops
// so the UI can render disabled affordances instead of errors.
type Controller struct {
	total   int
	current int
}

// NewController starts at the first question.
func NewController(total int) *Controller {
	if total < 0 {
		total = 0
	}
	return &Controller{total: total}
}

// Current returns the visible question index.
func (c *Controller) Current() int {
	return c.current
}

// Total returns the fixed slot count.
func (c *Controller) Total() int {
	return c.total
}

// Prev moves one slot back, clamped at the first question.
func (c *Controller) Prev() int {
	return c.JumpTo(c.current - 1)
}

// Next moves one slot forward, clamped at the last question.
func (c *Controller) Next() int {
	return c.JumpTo(c.current + 1)
}

// JumpTo moves to an arbitrary slot, clamped to the valid range.
func (c *Controller) JumpTo(index int) int {
	if c.total == 0 {
		c.current = 0
		return 0
	}
	if index < 0 {
		index = 0
	}
	if index > c.total-1 {
		index = c.total - 1
	}
	c.current = index
	return c.current
}

// AtFirst reports whether Prev would be a no-op.
func (c *Controller) AtFirst() bool {
	return c.current == 0
}

// AtLast reports whether Next would be a no-op.
func (c *Controller) AtLast() bool {
	return c.total == 0 || c.current == c.total-1
}

// Slot is the derived visual state of one navigation-grid button.
type Slot struct {
	Index    int  `json:"index"`
	Answered bool `json:"answered"`
	Current  bool `json:"current"`
}

// Slots recomputes the grid state from scratch; answered reports whether the
// question at a slot index has a recorded answer.
func (c *Controller) Slots(answered func(index int) bool) []Slot {
	slots := make([]Slot, c.total)
	for i := range slots {
		slots[i] = Slot{
			Index:    i,
			Answered: answered(i),
			Current:  i == c.current,
		}
	}
	return slots
}
