package audit

import (
	"bufio"
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// GenesisHash is the prev_hash of the first entry in a new log file.
const GenesisHash = "sha256:0000000000000000000000000000000000000000000000000000000000000000"

// FileSink appends entries as JSON lines, chaining each line to the hash of
// the previous one so tampering is detectable with Verify.
type FileSink struct {
	mu       sync.Mutex
	path     string
	file     *os.File
	prevHash string
	lastSeq  int64
	hasLast  bool
}

// OpenFile opens (or creates) a log file for appending. An existing file's
// last line is hashed to continue the chain.
func OpenFile(path string) (*FileSink, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("audit: create directory: %w", err)
	}

	sink := &FileSink{path: path, prevHash: GenesisHash}
	if info, err := os.Stat(path); err == nil && info.Size() > 0 {
		last, err := lastLine(path)
		if err != nil {
			return nil, err
		}
		if len(last) > 0 {
			var e Entry
			if err := json.Unmarshal(last, &e); err != nil {
				return nil, fmt.Errorf("audit: parse last line of %s: %w", path, err)
			}
			sink.prevHash = HashLine(last)
			sink.lastSeq, sink.hasLast = e.Seq, true
		}
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("audit: open file: %w", err)
	}

	sink.file = f
	return sink, nil
}

// LastSeq reports the sequence number of the last line in the file.
func (s *FileSink) LastSeq(context.Context) (int64, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeq, s.hasLast, nil
}

// Path returns the file path of the log.
func (s *FileSink) Path() string {
	return s.path
}

// Write appends entries as a single write followed by a sync. The batch is
// encoded before touching the file; a failed write is truncated back to the
// previous end so the file never holds a partial line.
func (s *FileSink) Write(ctx context.Context, entries []Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var buf bytes.Buffer
	prev := s.prevHash
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return err
		}
		e.PrevHash = prev
		line, err := json.Marshal(e)
		if err != nil {
			return fmt.Errorf("audit: marshal entry %d: %w", e.Seq, err)
		}
		buf.Write(line)
		buf.WriteByte('\n')
		prev = HashLine(line)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	info, err := s.file.Stat()
	if err != nil {
		return fmt.Errorf("audit: stat: %w", err)
	}
	offset := info.Size()

	if _, err := s.file.Write(buf.Bytes()); err != nil {
		return s.rollback(offset, fmt.Errorf("audit: write: %w", err))
	}
	if err := s.file.Sync(); err != nil {
		return s.rollback(offset, fmt.Errorf("audit: sync: %w", err))
	}
	s.prevHash = prev
	if len(entries) > 0 {
		s.lastSeq, s.hasLast = entries[len(entries)-1].Seq, true
	}
	return nil
}

func (s *FileSink) rollback(offset int64, cause error) error {
	if err := s.file.Truncate(offset); err != nil {
		return errors.Join(cause, fmt.Errorf("audit: truncate to %d: %w", offset, err))
	}
	return cause
}

// Close closes the underlying file.
func (s *FileSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.file.Close()
}

// HashLine returns "sha256:<hex>" of the given bytes.
func HashLine(line []byte) string {
	h := sha256.Sum256(line)
	return "sha256:" + hex.EncodeToString(h[:])
}

// ReadFile loads every entry from a JSON lines log.
func ReadFile(path string) ([]Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("audit: open %s: %w", path, err)
	}
	defer f.Close() //nolint:errcheck

	var entries []Entry
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 16*1024*1024)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		if len(scanner.Bytes()) == 0 {
			continue
		}
		var e Entry
		if err := json.Unmarshal(scanner.Bytes(), &e); err != nil {
			return nil, fmt.Errorf("audit: %s line %d: %w", path, lineNum, err)
		}
		entries = append(entries, e)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("audit: scan %s: %w", path, err)
	}
	return entries, nil
}

func lastLine(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("audit: read existing log: %w", err)
	}
	defer f.Close() //nolint:errcheck

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 16*1024*1024)
	var last []byte
	for scanner.Scan() {
		last = append(last[:0], scanner.Bytes()...)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("audit: scan existing log: %w", err)
	}
	return last, nil
}
