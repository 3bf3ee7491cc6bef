package results

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingMirror 记录上传 key 的镜像实现
type recordingMirror struct {
	mu   sync.Mutex
	keys []string
}

func (m *recordingMirror) Upload(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.keys = append(m.keys, key)
	return nil
}

// failingMirror 总是上传失败的镜像实现
type failingMirror struct{}

func (failingMirror) Upload(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error {
	return errors.New("object store unavailable")
}

// writeRunDir 在 base 下创建运行目录及其文件
func writeRunDir(t *testing.T, base, name string, files map[string]string) string {
	t.Helper()
	dir := filepath.Join(base, name)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	for fname, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, fname), []byte(content), 0o644))
	}
	return dir
}

func TestFinalize_FirstResult(t *testing.T) {
	base := t.TempDir()
	writeRunDir(t, base, "run-abc", map[string]string{"a.csv": "1,2,3"})

	f := NewFinalizer(base)
	name, err := f.Finalize(context.Background(), "run-abc")
	require.NoError(t, err)
	assert.Equal(t, "Result_1", name)

	data, err := os.ReadFile(filepath.Join(base, "Result_1", "a.csv"))
	require.NoError(t, err)
	assert.Equal(t, "1,2,3", string(data))
}

func TestFinalize_NumberingIsGapTolerant(t *testing.T) {
	base := t.TempDir()
	for _, existing := range []string{"Result_1", "Result_2", "Result_5"} {
		require.NoError(t, os.Mkdir(filepath.Join(base, existing), 0o755))
	}
	writeRunDir(t, base, "run-x", map[string]string{"out.json": "{}"})

	f := NewFinalizer(base)
	name, err := f.Finalize(context.Background(), "run-x")
	require.NoError(t, err)
	assert.Equal(t, "Result_6", name)
}

func TestFinalize_SkipsUnparsableNames(t *testing.T) {
	base := t.TempDir()
	for _, existing := range []string{"Result_3", "Result_abc", "Result_", "result_7", "notes"} {
		require.NoError(t, os.Mkdir(filepath.Join(base, existing), 0o755))
	}
	writeRunDir(t, base, "run-x", map[string]string{"out.json": "{}"})

	f := NewFinalizer(base)
	name, err := f.Finalize(context.Background(), "run-x")
	require.NoError(t, err)
	// result_7 前缀大小写不敏感，参与编号；Result_abc / Result_ 跳过
	assert.Equal(t, "Result_8", name)
}

func TestFinalize_StrictlyIncreasingAcrossCalls(t *testing.T) {
	base := t.TempDir()
	writeRunDir(t, base, "run-x", map[string]string{"out.json": "{}"})

	f := NewFinalizer(base)
	var names []string
	for i := 0; i < 3; i++ {
		name, err := f.Finalize(context.Background(), "run-x")
		require.NoError(t, err)
		names = append(names, name)
	}
	assert.Equal(t, []string{"Result_1", "Result_2", "Result_3"}, names)
}

func TestFinalize_CopiesOnlyDirectChildFiles(t *testing.T) {
	base := t.TempDir()
	runDir := writeRunDir(t, base, "run-x", map[string]string{"a.csv": "data"})
	require.NoError(t, os.MkdirAll(filepath.Join(runDir, "sub"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(runDir, "sub", "nested.txt"), []byte("x"), 0o644))

	f := NewFinalizer(base)
	name, err := f.Finalize(context.Background(), "run-x")
	require.NoError(t, err)

	entries, err := os.ReadDir(filepath.Join(base, name))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "a.csv", entries[0].Name())
}

func TestFinalize_AcceptsPathUnderBaseDir(t *testing.T) {
	base := t.TempDir()
	runDir := writeRunDir(t, base, "run-x", map[string]string{"a.csv": "data"})

	f := NewFinalizer(base)
	name, err := f.Finalize(context.Background(), runDir)
	require.NoError(t, err)
	assert.Equal(t, "Result_1", name)
}

func TestFinalize_ConcurrentCallsAllocateDistinctNumbers(t *testing.T) {
	base := t.TempDir()
	writeRunDir(t, base, "run-x", map[string]string{"out.json": "{}"})

	f := NewFinalizer(base)
	const workers = 8
	var wg sync.WaitGroup
	var mu sync.Mutex
	var names []string
	var errs []error
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			name, err := f.Finalize(context.Background(), "run-x")
			mu.Lock()
			names = append(names, name)
			errs = append(errs, err)
			mu.Unlock()
		}()
	}
	wg.Wait()

	for _, err := range errs {
		require.NoError(t, err)
	}
	seen := make(map[string]bool)
	for _, name := range names {
		assert.False(t, seen[name], "编号 %s 被分配了两次", name)
		seen[name] = true
	}
	assert.Len(t, seen, workers)
}

func TestFinalize_MirrorsUnderRemotePrefix(t *testing.T) {
	// 远端 key 前缀固定，不跟随本地基目录名
	base := filepath.Join(t.TempDir(), "myresults")
	writeRunDir(t, base, "run-x", map[string]string{"a.csv": "1,2", "b.txt": "x"})

	m := &recordingMirror{}
	f := NewFinalizer(base)
	f.SetMirror(m)

	name, err := f.Finalize(context.Background(), "run-x")
	require.NoError(t, err)
	require.Equal(t, "Result_1", name)

	sort.Strings(m.keys)
	assert.Equal(t, []string{
		"solver_output/Result_1/a.csv",
		"solver_output/Result_1/b.txt",
	}, m.keys)
}

func TestFinalize_MirrorFailureIsNotFatal(t *testing.T) {
	base := t.TempDir()
	writeRunDir(t, base, "run-x", map[string]string{"a.csv": "1,2"})

	f := NewFinalizer(base)
	f.SetMirror(failingMirror{})

	name, err := f.Finalize(context.Background(), "run-x")
	require.NoError(t, err)
	assert.Equal(t, "Result_1", name)

	// 本地副本不受镜像失败影响
	data, err := os.ReadFile(filepath.Join(base, "Result_1", "a.csv"))
	require.NoError(t, err)
	assert.Equal(t, "1,2", string(data))
}

func TestFinalize_RejectsIdentifierOutsideBaseDir(t *testing.T) {
	base := t.TempDir()
	f := NewFinalizer(base)

	for _, id := range []string{"..", "../..", "../../etc", "../sibling/run"} {
		_, err := f.Finalize(context.Background(), id)
		assert.ErrorIs(t, err, ErrRunNotFound, "identifier %q", id)
	}

	// 未创建任何结果目录
	entries, err := os.ReadDir(base)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestFinalize_MissingIdentifier(t *testing.T) {
	// 基目录不存在也不会被访问：缺参在任何文件系统调用之前返回
	f := NewFinalizer("/nonexistent/base")
	_, err := f.Finalize(context.Background(), "")
	assert.ErrorIs(t, err, ErrMissingIdentifier)
}

func TestFinalize_RunNotFound(t *testing.T) {
	base := t.TempDir()
	f := NewFinalizer(base)

	_, err := f.Finalize(context.Background(), "no-such-run")
	assert.ErrorIs(t, err, ErrRunNotFound)

	// 未创建任何结果目录
	entries, err2 := os.ReadDir(base)
	require.NoError(t, err2)
	assert.Empty(t, entries)
}

func TestFinalize_RegularFileIsNotARunDir(t *testing.T) {
	base := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(base, "not-a-dir"), []byte("x"), 0o644))

	f := NewFinalizer(base)
	_, err := f.Finalize(context.Background(), "not-a-dir")
	assert.ErrorIs(t, err, ErrRunNotFound)
}

func TestNextResultNumber_MissingBaseDirStartsAtOne(t *testing.T) {
	f := NewFinalizer(filepath.Join(t.TempDir(), "missing"))
	n, err := f.nextResultNumber()
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
