// Copyright © 2025 jackelyj <dreamerlyj@gmail.com>
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in
// all copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
// THE SOFTWARE.
//

// Package lra implements the coordinator core for Long Running Actions:
// saga-style distributed transactions in which a top-level action enrolls
// remote participants that are later told to complete or compensate.
//
// The package provides:
//  1. The LRA and participant data model with both status vocabularies
//     (Status for actions, ParticipantStatus for enrolled participants).
//  2. The Coordinator registry, which owns the set of live actions,
//     serializes operations per action, and drives the termination protocol
//     in reverse enlistment order.
//  3. Nested action cascading, where a child LRA is enrolled in its parent
//     as a synthetic participant and close/cancel decisions propagate
//     depth-first down the hierarchy.
//  4. A timeout scheduler that auto-cancels actions whose time limit elapses.
//  5. A recovery scanner that reconstructs actions from the durable log
//     after a crash and redrives unfinished terminations.
//
// Durability is delegated to the LogStore interface; see the storage
// subpackage for in-memory, Redis and SQL implementations.
package lra
