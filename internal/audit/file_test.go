package audit

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileRecorderAppendsJSONL(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit", "audit.jsonl")
	rec, err := NewFileRecorder(path)
	require.NoError(t, err)
	defer rec.Close()

	ctx := context.Background()
	require.NoError(t, rec.Record(ctx, Entry{
		Agent:       "validate",
		Provider:    "rules-engine",
		ReportID:    "r-1",
		InputDigest: Digest([]byte("input")),
		Output:      "is_valid=true",
		Duration:    12 * time.Millisecond,
	}))
	require.NoError(t, rec.Record(ctx, Entry{
		Agent:       "analyze_risk",
		Provider:    "rules-engine",
		InputDigest: Digest([]byte("input")),
		Error:       "provider timeout",
	}))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	var entries []Entry
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var e Entry
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &e))
		entries = append(entries, e)
	}

	require.Len(t, entries, 2)
	assert.Equal(t, "validate", entries[0].Agent)
	assert.False(t, entries[0].Timestamp.IsZero())
	// 失败调用同样留痕
	assert.Equal(t, "provider timeout", entries[1].Error)
}

func TestDigestStable(t *testing.T) {
	assert.Equal(t, Digest([]byte("abc")), Digest([]byte("abc")))
	assert.NotEqual(t, Digest([]byte("abc")), Digest([]byte("abd")))
	assert.Len(t, Digest(nil), 64)
}

type failingRecorder struct{ err error }

func (f failingRecorder) Record(ctx context.Context, entry Entry) error { return f.err }
func (f failingRecorder) Close() error                                  { return nil }

type countingRecorder struct{ n int }

func (c *countingRecorder) Record(ctx context.Context, entry Entry) error {
	c.n++
	return nil
}
func (c *countingRecorder) Close() error { return nil }

func TestMultiRecorderTriesAllSinks(t *testing.T) {
	boom := errors.New("sink down")
	counter := &countingRecorder{}
	multi := MultiRecorder{failingRecorder{err: boom}, counter}

	err := multi.Record(context.Background(), Entry{Agent: "validate"})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, counter.n)
}
