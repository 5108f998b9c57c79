// Copyright (c) the Jenkins project contributors.
// Licensed under the MIT License.

// Package stringutil contains small text and serialization helpers shared by
// the build orchestration packages.
package stringutil

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"golang.org/x/text/transform"
)

// CutLast is [strings.Cut], but cutting at the last occurrence of sep rather than the first.
func CutLast(s, sep string) (before, after string, found bool) {
	if i := strings.LastIndex(s, sep); i != -1 {
		return s[:i], s[i+len(sep):], true
	}
	return "", s, false
}

// WriteJSONFile writes one specified value to a file as indented JSON with a
// trailing newline.
func WriteJSONFile(path string, i any) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("unable to open JSON file %v for writing: %w", path, err)
	}
	defer func() {
		if closeErr := f.Close(); err == nil {
			err = closeErr
		}
	}()

	d := json.NewEncoder(f)
	d.SetIndent("", "  ")
	if err := d.Encode(i); err != nil {
		return fmt.Errorf("unable to encode model into JSON file %v: %w", path, err)
	}
	return nil
}

// CRLFToLF is a [transform.Transformer] that converts all occurrences
// of "\r\n" to "\n", leaving lone '\r' (not followed by '\n') untouched.
// The build configuration is routinely edited on Windows machines, and the
// YAML parser is fragile with CRLF line endings.
type CRLFToLF struct{}

// Reset implements [transform.Transformer]. No state to clear.
func (CRLFToLF) Reset() {}

// Transform converts CRLF to LF.
// Implements [transform.Transformer].
// It's careful about chunk boundaries and dst capacity.
func (CRLFToLF) Transform(dst, src []byte, atEOF bool) (nDst, nSrc int, err error) {
	for nSrc < len(src) {
		// Need at least one byte of dst space.
		if nDst == len(dst) {
			return nDst, nSrc, transform.ErrShortDst
		}

		b := src[nSrc]

		if b == '\r' {
			// If '\r' is the last byte in src chunk and we are not at EOF,
			// request more source to decide if it's CRLF.
			if nSrc+1 == len(src) {
				if !atEOF {
					return nDst, nSrc, transform.ErrShortSrc
				}
				// We're already at EOF: leave lone '\r' alone.
				dst[nDst] = '\r'
				nDst++
				nSrc++
				continue
			}
			// We have at least one more byte, so check if we have a full \r\n.
			if src[nSrc+1] == '\n' {
				// Convert CRLF -> LF
				dst[nDst] = '\n'
				nDst++
				nSrc += 2
				continue
			}
			// Lone '\r' not followed by '\n': leave it alone.
			dst[nDst] = '\r'
			nDst++
			nSrc++
			continue
		}

		// Normal byte: copy.
		dst[nDst] = b
		nDst++
		nSrc++
	}

	return nDst, nSrc, nil
}
