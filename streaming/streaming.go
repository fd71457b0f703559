// Copyright 2020-2023 Buf Technologies, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package streaming supplies the chunked reader used by the performance
// layer for files that exceed an in-memory threshold: instead of reading
// the whole file up front, it wraps the file in a bufio.Reader whose
// internal buffer is the "carry-over buffer" that lets a lexeme straddle
// chunk boundaries without the lexer ever noticing.
package streaming

import (
	"bufio"
	"bytes"
	"io"
	"os"
)

// MinCarryOver is the minimum safe carry-over buffer size: large enough to
// hold the longest in-flight lexeme (an arbitrarily long string literal)
// plus escape-sequence lookahead, per the design notes' 64 KiB lower bound.
const MinCarryOver = 64 * 1024

// DefaultThreshold is the file size above which Open switches from reading
// the whole file into memory to chunked streaming.
const DefaultThreshold int64 = 8 * 1024 * 1024

// Open returns a reader over the named file and a close function. If the
// file is larger than threshold (or threshold <= 0 and the default applies),
// the returned reader is a bufio.Reader over the open file handle, sized at
// least MinCarryOver so that a chunk boundary never splits a token in a way
// the lexer can observe. Smaller files are read entirely into memory, since
// there is no benefit to chunking them.
func Open(path string, threshold int64) (io.RuneScanner, func() error, error) {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, nil, err
	}
	if info.Size() <= threshold {
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			return nil, nil, err
		}
		return bytes.NewReader(data), func() error { return nil }, nil
	}
	return bufio.NewReaderSize(f, MinCarryOver), f.Close, nil
}

// IsLarge reports whether the named file exceeds threshold (or
// DefaultThreshold if threshold <= 0), without opening it for reading.
func IsLarge(path string, threshold int64) (bool, error) {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	info, err := os.Stat(path)
	if err != nil {
		return false, err
	}
	return info.Size() > threshold, nil
}
