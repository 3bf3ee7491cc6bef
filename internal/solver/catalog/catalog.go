// Package catalog 结果目录清单
//
// 清单不落库：每次查询都扫描对象存储中 solver_output/ 前缀下的对象，
// 按 Result_<N> 目录名聚合后返回，按编号倒序排列（最新编号在前）。
package catalog

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"time"

	"solver-admin/internal/shared/objstore"
)

// Prefix 对象存储中结果目录的公共前缀
const Prefix = "solver_output/"

// folderRe 从对象 key 中提取结果目录名和编号
var folderRe = regexp.MustCompile(`^solver_output/(Result_([0-9]+))(/|$)`)

// Entry 单个结果目录的聚合摘要
type Entry struct {
	Name      string    `json:"name"`
	Path      string    `json:"path"`
	Created   time.Time `json:"created"`
	FileCount int       `json:"fileCount"`
}

// BlobLister 对象存储列举接口
type BlobLister interface {
	List(ctx context.Context, prefix string) ([]objstore.ObjectInfo, error)
}

// Reader 结果目录清单读取器
type Reader struct {
	lister BlobLister
}

// NewReader 创建清单读取器
func NewReader(lister BlobLister) *Reader {
	return &Reader{lister: lister}
}

// ListResultFolders 列出所有结果目录摘要
//
// 聚合规则：
//   - key 不匹配 solver_output/Result_<数字>/ 的对象静默忽略
//   - 每个目录保留首次出现对象的上传时间作为 created（单次列举内确定，
//     不保证是时间上最早的上传）
//   - fileCount 对每个匹配对象加一
//
// 返回序列按编号倒序；空结果返回空切片而不是 nil。
func (r *Reader) ListResultFolders(ctx context.Context) ([]Entry, error) {
	objects, err := r.lister.List(ctx, Prefix)
	if err != nil {
		return nil, fmt.Errorf("list result folders: %w", err)
	}

	byName := make(map[string]*Entry)
	numbers := make(map[string]int)
	for _, obj := range objects {
		m := folderRe.FindStringSubmatch(obj.Key)
		if m == nil {
			continue
		}
		name := m[1]
		e, ok := byName[name]
		if !ok {
			n, err := strconv.Atoi(m[2])
			if err != nil {
				continue
			}
			e = &Entry{Name: name, Path: Prefix + name, Created: obj.LastModified}
			byName[name] = e
			numbers[name] = n
		}
		e.FileCount++
	}

	entries := make([]Entry, 0, len(byName))
	for _, e := range byName {
		entries = append(entries, *e)
	}
	sort.Slice(entries, func(i, j int) bool {
		return numbers[entries[i].Name] > numbers[entries[j].Name]
	})
	return entries, nil
}
