/*
 * Copyright (c) 2026 Sqlsh Authors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package shell

import (
	"bytes"

	"go.uber.org/zap"

	_ "sqlsh/internal/engine/memdb"
)

// bufSink adapts a buffer to the Sink interface for tests.
type bufSink struct{ *bytes.Buffer }

func (bufSink) Close() error { return nil }

// newTestSession returns a session wired to in-memory buffers for its
// output and error streams.
func newTestSession() (*Session, *bytes.Buffer, *bytes.Buffer) {
	s := NewSession(zap.NewNop())
	out := &bytes.Buffer{}
	errw := &bytes.Buffer{}
	s.SetOutput(bufSink{out})
	s.SetErrorWriter(errw)
	return s, out, errw
}
