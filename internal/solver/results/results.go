// Package results 结果目录生命周期管理
//
// 将一次求解运行（run 目录）固化为持久化的编号结果目录 Result_<N>。
// 编号取当前已存在的最大编号 +1，每次调用重新扫描基目录（不缓存计数器），
// 允许编号中存在空洞（失败/删除的运行不复用编号）。
package results

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"solver-admin/internal/solver/catalog"
)

// ResultPrefix 结果目录名前缀
const ResultPrefix = "Result_"

// resultNameRe 严格匹配 Result_<数字>（前缀大小写不敏感）
var resultNameRe = regexp.MustCompile(`(?i)^result_([0-9]+)$`)

// 哨兵错误（由 HTTP 层转换为对应状态码）
var (
	ErrMissingIdentifier = errors.New("run identifier is required")
	ErrRunNotFound       = errors.New("run directory not found")
)

// Mirror 结果文件的远端镜像接口（对象存储，best-effort）
type Mirror interface {
	Upload(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error
}

// Finalizer 运行固化器
type Finalizer struct {
	baseDir string
	mirror  Mirror // 可为 nil（不镜像到对象存储）

	// 串行化扫描+创建，两个并发调用不会分配到同一编号
	mu sync.Mutex
}

// NewFinalizer 创建运行固化器
func NewFinalizer(baseDir string) *Finalizer {
	return &Finalizer{baseDir: baseDir}
}

// SetMirror 设置远端镜像（可选）
func (f *Finalizer) SetMirror(m Mirror) {
	f.mirror = m
}

// Finalize 将 runIdentifier 指向的运行目录固化为新的结果目录
//
// runIdentifier 可以是基目录下的裸目录名，也可以是已位于基目录下的路径。
// 只复制运行目录的直接子级普通文件（子目录跳过、不递归），文件按原名
// 逐个复制；复制不是跨文件原子的，中途失败会留下部分填充的结果目录，
// 调用方重试会得到一个新编号的目录而不是续写旧目录。
//
// 返回新建结果目录的名字（不含路径）。
func (f *Finalizer) Finalize(ctx context.Context, runIdentifier string) (string, error) {
	if runIdentifier == "" {
		return "", ErrMissingIdentifier
	}

	candidate, err := f.resolve(runIdentifier)
	if err != nil {
		return "", err
	}
	info, err := os.Stat(candidate)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("%w: %s", ErrRunNotFound, runIdentifier)
		}
		return "", fmt.Errorf("stat run directory: %w", err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("%w: %s is not a directory", ErrRunNotFound, runIdentifier)
	}

	// 锁只覆盖扫描+建目录：目录一旦创建编号即被占用，
	// 后续复制和镜像不持锁，并发固化不会互相等待慢上传
	f.mu.Lock()
	next, err := f.nextResultNumber()
	if err != nil {
		f.mu.Unlock()
		return "", err
	}
	folderName := fmt.Sprintf("%s%d", ResultPrefix, next)
	destDir := filepath.Join(f.baseDir, folderName)

	if err := os.MkdirAll(destDir, 0o755); err != nil {
		f.mu.Unlock()
		return "", fmt.Errorf("create result directory: %w", err)
	}
	f.mu.Unlock()

	entries, err := os.ReadDir(candidate)
	if err != nil {
		return "", fmt.Errorf("read run directory: %w", err)
	}

	copied := 0
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		src := filepath.Join(candidate, e.Name())
		dst := filepath.Join(destDir, e.Name())
		if err := copyFile(src, dst); err != nil {
			return "", fmt.Errorf("copy %s: %w", e.Name(), err)
		}
		copied++

		if f.mirror != nil {
			f.mirrorFile(ctx, folderName, dst, e.Name())
		}
	}

	log.Printf("[results.finalize] run=%s folder=%s files=%d", runIdentifier, folderName, copied)
	return folderName, nil
}

// resolve 将运行标识解析为基目录下的候选路径
//
// 解析结果必须落在基目录内，跳出基目录的标识（如 ../x）按运行不存在处理。
func (f *Finalizer) resolve(runIdentifier string) (string, error) {
	cleaned := filepath.Clean(runIdentifier)
	base := filepath.Clean(f.baseDir)
	if cleaned == base || strings.HasPrefix(cleaned, base+string(filepath.Separator)) {
		return cleaned, nil
	}
	joined := filepath.Join(base, cleaned)
	if !strings.HasPrefix(joined, base+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s", ErrRunNotFound, runIdentifier)
	}
	return joined, nil
}

// nextResultNumber 扫描基目录计算下一个结果编号
//
// 只统计严格匹配 Result_<数字> 的直接子项，无法解析编号的名字跳过，
// 不中断扫描。基目录不存在视为空，从 1 开始。
func (f *Finalizer) nextResultNumber() (int, error) {
	entries, err := os.ReadDir(f.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return 1, nil
		}
		return 0, fmt.Errorf("scan base directory: %w", err)
	}

	max := 0
	for _, e := range entries {
		m := resultNameRe.FindStringSubmatch(e.Name())
		if m == nil {
			continue
		}
		n, err := strconv.Atoi(m[1])
		if err != nil || n <= 0 {
			continue
		}
		if n > max {
			max = n
		}
	}
	return max + 1, nil
}

// mirrorFile 将已复制的结果文件上传到对象存储
//
// 远端 key 固定使用清单读取器扫描的前缀，与本地基目录名无关。
// 镜像失败只记录日志，不影响固化结果（保底数据在本地目录）。
func (f *Finalizer) mirrorFile(ctx context.Context, folderName, localPath, name string) {
	src, err := os.Open(localPath)
	if err != nil {
		log.Printf("[results.mirror.failed] folder=%s file=%s error=%v", folderName, name, err)
		return
	}
	defer src.Close()

	info, err := src.Stat()
	if err != nil {
		log.Printf("[results.mirror.failed] folder=%s file=%s error=%v", folderName, name, err)
		return
	}

	key := path.Join(catalog.Prefix, folderName, name)
	if err := f.mirror.Upload(ctx, key, src, info.Size(), ""); err != nil {
		log.Printf("[results.mirror.failed] folder=%s file=%s error=%v", folderName, name, err)
		return
	}
	log.Printf("[results.mirror] key=%s bytes=%d", key, info.Size())
}

// copyFile 按字节复制单个文件
func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Close()
}
