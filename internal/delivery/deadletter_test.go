package delivery

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileLog_ConcurrentAppendsStayWholeLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dl.jsonl")
	log := NewFileLog(path)

	const writers, perWriter = 8, 25
	var wg sync.WaitGroup
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWriter; i++ {
				err := log.Append(Entry{
					Timestamp: time.Now(),
					UserID:    fmt.Sprintf("U%d", w),
					Text:      strings.Repeat("字", 500),
				})
				assert.NoError(t, err)
			}
		}(w)
	}
	wg.Wait()

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lines := 0
	for scanner.Scan() {
		var raw map[string]any
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &raw))
		assert.Contains(t, raw, "ts")
		assert.Contains(t, raw, "user_id")
		assert.Contains(t, raw, "text")
		lines++
	}
	require.NoError(t, scanner.Err())
	assert.Equal(t, writers*perWriter, lines)
}

func TestFileLog_TimestampIsUTC(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dl.jsonl")
	log := NewFileLog(path)
	taipei := time.FixedZone("CST", 8*3600)

	require.NoError(t, log.Append(Entry{Timestamp: time.Date(2025, 2, 2, 12, 0, 0, 0, taipei), UserID: "U1", Text: "x"}))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"ts":"2025-02-02T04:00:00Z"`)
}

func TestFileLog_AppendFailsOnUnwritablePath(t *testing.T) {
	dir := t.TempDir()
	// A directory where the file should be
	path := filepath.Join(dir, "dl.jsonl")
	require.NoError(t, os.Mkdir(path, 0o755))

	err := NewFileLog(path).Append(Entry{UserID: "U1", Text: "x"})
	assert.Error(t, err)
}

func TestFileLog_Drain(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dl.jsonl")
	log := NewFileLog(path)

	entries, archive, err := log.Drain(time.Now())
	require.NoError(t, err)
	assert.Empty(t, entries)
	assert.Empty(t, archive)

	require.NoError(t, log.Append(Entry{UserID: "U1", Text: "a"}))
	require.NoError(t, log.Append(Entry{UserID: "U2", Text: "b"}))

	entries, archive, err = log.Drain(time.Unix(1700000000, 0))
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, path+".1700000000", archive)
	assert.NoFileExists(t, path)
	assert.FileExists(t, archive)

	// New failures go to a fresh file
	require.NoError(t, log.Append(Entry{UserID: "U3", Text: "c"}))
	fresh, err := ReadEntries(path)
	require.NoError(t, err)
	require.Len(t, fresh, 1)
	assert.Equal(t, "U3", fresh[0].UserID)
}

func TestReadEntries_InvalidLine(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dl.jsonl")
	require.NoError(t, os.WriteFile(path, []byte("{\"user_id\":\"U1\",\"text\":\"a\"}\n\nnot json\n"), 0o600))

	_, err := ReadEntries(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 3")
}

func TestRedact(t *testing.T) {
	assert.Equal(t, "", Redact(""))
	assert.Equal(t, "****", Redact("abcd"))
	assert.Equal(t, "********", Redact("abcdefgh"))
	assert.Equal(t, "abcd*efgh", Redact("abcdXefgh"))
	assert.Equal(t, "8869****5678", Redact("886912345678"))
}

func TestPlatformError(t *testing.T) {
	assert.Equal(t, "platform rejected message: status 429", (&PlatformError{StatusCode: 429}).Error())
	assert.Equal(t, "platform rejected message: status 400: bad", (&PlatformError{StatusCode: 400, Body: "bad"}).Error())
}
