package models

// Button is one inline keyboard button: a label and the callback data the
// transport echoes back when it is pressed.
type Button struct {
	Label string
	Data  string
}

// Keyboard is a transport-agnostic inline keyboard layout.
type Keyboard struct {
	Rows [][]Button
}

// Row appends one row of buttons and returns the keyboard for chaining.
func (k *Keyboard) Row(buttons ...Button) *Keyboard {
	k.Rows = append(k.Rows, buttons)
	return k
}

// Empty reports whether the keyboard has no rows.
func (k *Keyboard) Empty() bool {
	return k == nil || len(k.Rows) == 0
}
