// worker.go - embeddable goroutine lifecycle, the Halt/Go/HaltCh pattern.
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

// Package worker provides an embeddable type that gives any struct a
// Halt/Go/HaltCh lifecycle: background goroutines are launched with Go,
// and every one of them is expected to select on HaltCh() so a single
// Halt() call unwinds them all and blocks until they have exited.
package worker

import "sync"

// Worker is embedded by value into a struct to give it Halt/Go/HaltCh.
// The zero value is usable.
type Worker struct {
	mu     sync.Mutex
	haltCh chan struct{}
	once   sync.Once
	wg     sync.WaitGroup
}

func (w *Worker) init() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.haltCh == nil {
		w.haltCh = make(chan struct{})
	}
}

// HaltCh returns the channel that is closed when Halt is called. A
// goroutine launched with Go should select on this channel to know when
// to stop.
func (w *Worker) HaltCh() <-chan struct{} {
	w.init()
	return w.haltCh
}

// Go launches fn in a new goroutine tracked by this Worker, so Halt
// blocks until fn has returned.
func (w *Worker) Go(fn func()) {
	w.init()
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		fn()
	}()
}

// Halt closes HaltCh (exactly once, safe to call repeatedly or
// concurrently) and blocks until every goroutine started with Go has
// returned.
func (w *Worker) Halt() {
	w.init()
	w.once.Do(func() { close(w.haltCh) })
	w.wg.Wait()
}
