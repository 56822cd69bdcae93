package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type record struct {
	ID    string   `json:"id"`
	Names []string `json:"names"`
}

func newTestStorage(t *testing.T, opts ...Option) *FileStorage {
	t.Helper()
	fs, err := NewFileStorage(t.TempDir(), opts...)
	require.NoError(t, err)
	t.Cleanup(fs.Close)
	return fs
}

// TestSaveAndLoadJSON 测试 JSON 读写
func TestSaveAndLoadJSON(t *testing.T) {
	fs := newTestStorage(t)

	require.NoError(t, fs.SaveJSONFile("scenarios", "a.json", record{ID: "a", Names: []string{"민지"}}))
	assert.True(t, fs.FileExists("scenarios", "a.json"))
	assert.NoFileExists(t, filepath.Join(fs.BaseDir, "scenarios", "a.json.tmp"))

	var got record
	require.NoError(t, fs.LoadJSONFile("scenarios", "a.json", &got))
	assert.Equal(t, record{ID: "a", Names: []string{"민지"}}, got)
}

// TestSaveInvalidatesCache 测试写入后缓存失效
func TestSaveInvalidatesCache(t *testing.T) {
	fs := newTestStorage(t)

	require.NoError(t, fs.SaveJSONFile("scenarios", "a.json", record{ID: "v1"}))
	var got record
	require.NoError(t, fs.LoadJSONFile("scenarios", "a.json", &got))
	assert.Equal(t, 1, fs.CacheSize())

	require.NoError(t, fs.SaveJSONFile("scenarios", "a.json", record{ID: "v2"}))
	require.NoError(t, fs.LoadJSONFile("scenarios", "a.json", &got))
	assert.Equal(t, "v2", got.ID)
}

// TestCacheSizeLimit 测试缓存条目上限
func TestCacheSizeLimit(t *testing.T) {
	fs := newTestStorage(t, WithMaxCacheSize(2))

	for i := 0; i < 5; i++ {
		name := fmt.Sprintf("%d.json", i)
		require.NoError(t, fs.SaveJSONFile("s", name, record{ID: name}))
		_, err := fs.LoadTextFile("s", name)
		require.NoError(t, err)
	}
	assert.LessOrEqual(t, fs.CacheSize(), 2)
}

// TestDeleteFile 测试删除文件
func TestDeleteFile(t *testing.T) {
	fs := newTestStorage(t)

	require.NoError(t, fs.SaveJSONFile("s", "a.json", record{ID: "a"}))
	_, err := fs.LoadTextFile("s", "a.json")
	require.NoError(t, err)

	require.NoError(t, fs.DeleteFile("s", "a.json"))
	assert.False(t, fs.FileExists("s", "a.json"))
	_, err = fs.LoadTextFile("s", "a.json")
	assert.Error(t, err)

	err = fs.DeleteFile("s", "a.json")
	assert.True(t, errors.Is(err, ErrNotExist))
}

// TestListFiles 测试列出文件
func TestListFiles(t *testing.T) {
	fs := newTestStorage(t)

	files, err := fs.ListFiles("missing", ".json")
	require.NoError(t, err)
	assert.Empty(t, files)

	require.NoError(t, fs.SaveJSONFile("s", "b.json", record{}))
	require.NoError(t, fs.SaveJSONFile("s", "a.json", record{}))
	require.NoError(t, os.WriteFile(filepath.Join(fs.BaseDir, "s", "notes.txt"), []byte("x"), 0644))
	require.NoError(t, os.MkdirAll(filepath.Join(fs.BaseDir, "s", "dir.json"), 0755))

	files, err = fs.ListFiles("s", ".json")
	require.NoError(t, err)
	assert.Equal(t, []string{"a.json", "b.json"}, files)
}

// TestConcurrentWrites 测试并发写入同一文件
func TestConcurrentWrites(t *testing.T) {
	fs := newTestStorage(t)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			assert.NoError(t, fs.SaveJSONFile("s", "shared.json", record{ID: fmt.Sprint(i)}))
		}(i)
	}
	wg.Wait()

	var got record
	require.NoError(t, fs.LoadJSONFile("s", "shared.json", &got))
	assert.NotEmpty(t, got.ID)
}

// TestCloseIsIdempotent 测试重复关闭
func TestCloseIsIdempotent(t *testing.T) {
	fs, err := NewFileStorage(t.TempDir())
	require.NoError(t, err)
	fs.Close()
	fs.Close()
}
