package snapshot

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/John-Robertt/boxoffice/internal/domain"
)

const (
	FormatCSV    = "csv"
	FormatSQLite = "sqlite"

	// BaseName 是快照的固定文件名（不含扩展名），下游分析按它定位。
	BaseName = "movie_dataframe"
)

// FileName 返回某种格式的快照文件名。
func FileName(format string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case FormatCSV, "":
		return BaseName + ".csv", nil
	case FormatSQLite:
		return BaseName + ".db", nil
	default:
		return "", fmt.Errorf("未知快照格式：%q", format)
	}
}

// Write 在 dir 下原子写出快照（整体替换旧文件），返回最终路径。
// 每次运行只写一次；写完后不再修改。
func Write(dir, format string, recs []domain.MovieRecord) (string, error) {
	name, err := FileName(format)
	if err != nil {
		return "", err
	}
	switch filepath.Ext(name) {
	case ".db":
		err = writeSQLite(dir, name, recs)
	default:
		err = writeCSV(dir, name, recs)
	}
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, name), nil
}

// Load 按扩展名读取快照（.csv / .db）。
func Load(path string) ([]domain.MovieRecord, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return loadCSV(path)
	case ".db", ".sqlite":
		return loadSQLite(path)
	default:
		return nil, fmt.Errorf("无法识别的快照文件：%s", path)
	}
}
