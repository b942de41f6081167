// Package blobstore ships flushed audit entries to Azure Blob Storage as
// zstd-compressed JSON lines segments.
package blobstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path"
	"sync"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/blob"
	"github.com/klauspost/compress/zstd"

	"github.com/piyushigoyal/claimtriage/internal/audit"
)

// blobAPI is the subset of *azblob.Client used by the sink.
type blobAPI interface {
	UploadBuffer(ctx context.Context, containerName, blobName string, buffer []byte, o *azblob.UploadBufferOptions) (azblob.UploadBufferResponse, error)
	ListBlobNames(ctx context.Context, containerName, prefix string) ([]string, error)
}

type azContainer struct {
	*azblob.Client
}

func (c azContainer) ListBlobNames(ctx context.Context, containerName, prefix string) ([]string, error) {
	var names []string
	pager := c.NewListBlobsFlatPager(containerName, &azblob.ListBlobsFlatOptions{Prefix: &prefix})
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		for _, item := range page.Segment.BlobItems {
			if item.Name != nil {
				names = append(names, *item.Name)
			}
		}
	}
	return names, nil
}

// Sink writes each flush as its own blob named
// <prefix>/<first seq>-<last seq>.jsonl.zst.
type Sink struct {
	client    blobAPI
	container string
	prefix    string

	mu  sync.Mutex
	enc *zstd.Encoder
}

// New connects to accountURL with DefaultAzureCredential.
func New(accountURL, container, prefix string) (*Sink, error) {
	cred, err := azidentity.NewDefaultAzureCredential(nil)
	if err != nil {
		return nil, fmt.Errorf("blobstore: credential: %w", err)
	}
	return NewWithCredential(accountURL, container, prefix, cred)
}

// NewWithCredential connects to accountURL with the given credential.
func NewWithCredential(accountURL, container, prefix string, cred azcore.TokenCredential) (*Sink, error) {
	client, err := azblob.NewClient(accountURL, cred, nil)
	if err != nil {
		return nil, fmt.Errorf("blobstore: client: %w", err)
	}
	return newSink(azContainer{client}, container, prefix)
}

func newSink(client blobAPI, container, prefix string) (*Sink, error) {
	enc, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, fmt.Errorf("blobstore: zstd encoder: %w", err)
	}
	return &Sink{client: client, container: container, prefix: prefix, enc: enc}, nil
}

// BlobName returns the blob a batch starting at first and ending at last is
// stored under.
func (s *Sink) BlobName(first, last int64) string {
	return path.Join(s.prefix, fmt.Sprintf("%012d-%012d.jsonl.zst", first, last))
}

// LastSeq scans the segment names under the prefix for the highest last
// sequence number.
func (s *Sink) LastSeq(ctx context.Context) (int64, bool, error) {
	listPrefix := s.prefix
	if listPrefix != "" {
		listPrefix += "/"
	}
	names, err := s.client.ListBlobNames(ctx, s.container, listPrefix)
	if err != nil {
		return 0, false, fmt.Errorf("blobstore: list %s: %w", listPrefix, err)
	}
	var (
		last  int64
		found bool
	)
	for _, name := range names {
		var first, end int64
		if _, err := fmt.Sscanf(path.Base(name), "%012d-%012d.jsonl.zst", &first, &end); err != nil {
			continue
		}
		if !found || end > last {
			last, found = end, true
		}
	}
	return last, found, nil
}

func (s *Sink) Write(ctx context.Context, entries []audit.Entry) error {
	if len(entries) == 0 {
		return nil
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, e := range entries {
		if err := enc.Encode(e); err != nil {
			return fmt.Errorf("blobstore: marshal entry %d: %w", e.Seq, err)
		}
	}

	s.mu.Lock()
	compressed := s.enc.EncodeAll(buf.Bytes(), nil)
	s.mu.Unlock()

	name := s.BlobName(entries[0].Seq, entries[len(entries)-1].Seq)
	contentType := "application/zstd"
	_, err := s.client.UploadBuffer(ctx, s.container, name, compressed, &azblob.UploadBufferOptions{
		Metadata: map[string]*string{"entries": ptr(fmt.Sprint(len(entries)))},
		HTTPHeaders: &blob.HTTPHeaders{
			BlobContentType: &contentType,
		},
	})
	if err != nil {
		return fmt.Errorf("blobstore: upload %s: %w", name, err)
	}
	return nil
}

func (s *Sink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.enc.Close()
}

// Decode turns a segment written by Sink back into entries.
func Decode(segment []byte) ([]audit.Entry, error) {
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, err
	}
	defer dec.Close()

	raw, err := dec.DecodeAll(segment, nil)
	if err != nil {
		return nil, fmt.Errorf("blobstore: decompress: %w", err)
	}

	var out []audit.Entry
	d := json.NewDecoder(bytes.NewReader(raw))
	for d.More() {
		var e audit.Entry
		if err := d.Decode(&e); err != nil {
			return nil, fmt.Errorf("blobstore: decode entry: %w", err)
		}
		out = append(out, e)
	}
	return out, nil
}

func ptr[T any](v T) *T {
	return &v
}
