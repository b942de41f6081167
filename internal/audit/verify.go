package audit

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
)

// VerifyResult holds the outcome of a hash chain verification.
type VerifyResult struct {
	Valid     bool   `json:"valid"`
	Lines     int    `json:"lines"`
	Error     string `json:"error,omitempty"`
	ErrorLine int    `json:"error_line,omitempty"`
}

// Verify reads a log written by FileSink and checks that every line's
// prev_hash matches the hash of the line before it.
func Verify(path string) VerifyResult {
	f, err := os.Open(path)
	if err != nil {
		return VerifyResult{Error: fmt.Sprintf("open: %v", err)}
	}
	defer f.Close() //nolint:errcheck

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 16*1024*1024)
	lineNum := 0
	expected := GenesisHash

	for scanner.Scan() {
		lineNum++
		line := append([]byte(nil), scanner.Bytes()...)

		var e Entry
		if err := json.Unmarshal(line, &e); err != nil {
			return VerifyResult{Lines: lineNum - 1, Error: fmt.Sprintf("parse error: %v", err), ErrorLine: lineNum}
		}
		if e.PrevHash != expected {
			return VerifyResult{
				Lines:     lineNum - 1,
				Error:     fmt.Sprintf("hash mismatch: expected %s, got %s", expected, e.PrevHash),
				ErrorLine: lineNum,
			}
		}
		expected = HashLine(line)
	}

	if err := scanner.Err(); err != nil {
		return VerifyResult{Error: fmt.Sprintf("scan: %v", err)}
	}

	return VerifyResult{Valid: true, Lines: lineNum}
}
