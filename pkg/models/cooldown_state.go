package models

import "time"

// CooldownState is a read-only view of the execution controller's cooldown.
type CooldownState struct {
	LastActionAt *time.Time    `json:"last_action_at,omitempty"`
	Active       bool          `json:"active"`
	Duration     time.Duration `json:"duration"`
	Remaining    time.Duration `json:"remaining"`
}

// RemainingSeconds rounds the remaining cooldown up to whole seconds.
func (c CooldownState) RemainingSeconds() int {
	if !c.Active || c.Remaining <= 0 {
		return 0
	}
	secs := int(c.Remaining / time.Second)
	if c.Remaining%time.Second != 0 {
		secs++
	}
	return secs
}
