// clock.go - transaction timing floor.
// Copyright (C) 2026  Decoder Authors.
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <http://www.gnu.org/licenses/>.

// Package clock enforces the minimum per-transaction duration on every
// failed request, so that the time a host observes before receiving an
// error response carries no information about which step of the
// transaction failed.
package clock

import "time"

// MinTransactionDuration is the floor every transaction that ends in an
// error must run for. A board would measure this against a free-running
// timer tick counter; a hosted process has a real monotonic clock, so
// wall-clock time plays that role here.
const MinTransactionDuration = 5 * time.Second

// TransactionClock tracks the start of one command transaction and can
// block the remainder of the way to the floor.
type TransactionClock struct {
	started time.Time
	now     func() time.Time
	sleep   func(time.Duration)
}

// New returns a TransactionClock using the real wall clock.
func New() *TransactionClock {
	return &TransactionClock{now: time.Now, sleep: time.Sleep}
}

// NewCustom returns a TransactionClock driven by the given now/sleep
// functions, letting tests exercise the 5-second floor without an actual
// wall-clock wait.
func NewCustom(now func() time.Time, sleep func(time.Duration)) *TransactionClock {
	return &TransactionClock{now: now, sleep: sleep}
}

// Start marks the beginning of a transaction. Call it once per request,
// before dispatching to the command handler.
func (c *TransactionClock) Start() {
	c.started = c.now()
}

// WaitForFloor blocks until MinTransactionDuration has elapsed since the
// last Start call, returning immediately if that duration has already
// passed. The command dispatcher calls this only on the error path: a
// successful response is returned as soon as it is ready, since only
// failures are timing-sensitive to an attacker probing for which check
// rejected a given request.
func (c *TransactionClock) WaitForFloor() {
	elapsed := c.now().Sub(c.started)
	if remaining := MinTransactionDuration - elapsed; remaining > 0 {
		c.sleep(remaining)
	}
}
