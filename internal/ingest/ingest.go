// 包 ingest：离线文件通道。读取人口中心导入文件与配置快照文件，并以原子方式写出快照
package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"lbs-core/internal/catalog"
	"lbs-core/internal/logger"
	"lbs-core/internal/registry"
)

// ImportCentersFile：读取导入文件并整体替换目录
// 异常：文件读取错误包装后返回；结构错误原样返回 ValidationError（目录保持不变）
func ImportCentersFile(ctx context.Context, path string, cat *catalog.Catalog) (catalog.ImportResult, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return catalog.ImportResult{}, fmt.Errorf("read import file: %w", err)
	}
	logger.L().Info("ingest_centers_start", "path", path, "bytes", len(b))
	res, err := cat.LoadFromImport(ctx, b)
	if err != nil {
		return res, err
	}
	logger.L().Info("ingest_centers_done", "path", path, "accepted", res.Accepted, "rejected", res.Rejected)
	return res, nil
}

// ReadSnapshotFile：读取快照原文；校验交由 registry.ImportSnapshot 整体完成
func ReadSnapshotFile(path string) ([]byte, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read snapshot file: %w", err)
	}
	return b, nil
}

// ImportSnapshotFile：读取并恢复快照
func ImportSnapshotFile(ctx context.Context, path string, reg *registry.Registry) error {
	b, err := ReadSnapshotFile(path)
	if err != nil {
		return err
	}
	return reg.ImportSnapshot(ctx, b)
}

// WriteSnapshotFile：写入快照
// 背景：先写同目录临时文件并 Sync，再 Rename 覆盖，避免中断时留下半截文件
func WriteSnapshotFile(path string, s registry.Snapshot) error {
	b, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	f, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	tmp := f.Name()
	defer os.Remove(tmp)
	if _, err := f.Write(b); err != nil {
		f.Close()
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		return err
	}
	logger.L().Info("snapshot_write_done", "path", path, "aisd", len(s.GruposAISD), "aisi", len(s.GruposAISI))
	return nil
}
