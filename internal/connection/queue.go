// Tether - Resilient WebSocket Channel Client
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tether

package connection

// frameQueue is the FIFO of encoded outbound payloads. It is guarded by the
// Manager's mutex.
type frameQueue struct {
	items [][]byte
	head  int
}

func (q *frameQueue) Len() int { return len(q.items) - q.head }

func (q *frameQueue) PushBack(frame []byte) {
	q.items = append(q.items, frame)
}

// PushFront returns a frame that failed to write to the head.
func (q *frameQueue) PushFront(frame []byte) {
	if q.head > 0 {
		q.head--
		q.items[q.head] = frame
		return
	}
	q.items = append([][]byte{frame}, q.items...)
}

// PopFront removes and returns the head frame.
func (q *frameQueue) PopFront() ([]byte, bool) {
	if q.Len() == 0 {
		return nil, false
	}
	frame := q.items[q.head]
	q.items[q.head] = nil
	q.head++

	// Compact once the consumed prefix dominates the backing array.
	if q.head > 32 && q.head*2 >= len(q.items) {
		n := copy(q.items, q.items[q.head:])
		clear(q.items[n:])
		q.items = q.items[:n]
		q.head = 0
	}
	return frame, true
}

// Reset drops every frame and returns how many were discarded.
func (q *frameQueue) Reset() int {
	n := q.Len()
	q.items = nil
	q.head = 0
	return n
}
