// Package main 本地求解器分发包打包工具
//
// 无参数：读取 public/local-solver-package/，在 public/ 下生成
// local-solver-package.zip。
//
// 退出码：0 成功，1 源目录缺失，2 打包失败。
package main

import (
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/dustin/go-humanize"

	"solver-admin/internal/config"
	"solver-admin/internal/shared/archive"
)

func main() {
	cfg := config.Load()
	srcDir := cfg.Solver.PackageDir
	destPath := cfg.Solver.PackageArchive

	size, err := archive.BuildZip(srcDir, destPath)
	if err != nil {
		if errors.Is(err, archive.ErrSourceNotFound) {
			log.Printf("[pack.source.missing] dir=%s", srcDir)
			os.Exit(1)
		}
		log.Printf("[pack.failed] error=%v", err)
		os.Exit(2)
	}

	fmt.Printf("Created %s (%s, %d bytes)\n", destPath, humanize.Bytes(uint64(size)), size)
}
