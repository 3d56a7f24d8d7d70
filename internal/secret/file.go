package secret

import (
	"bytes"
	"os"
	"path/filepath"

	"github.com/natefinch/atomic"

	"github.com/zx06/tokey/internal/errors"
)

// FileBackend 把凭据文档写到磁盘：owner-only 权限，临时文件 + rename，
// 避免崩溃截断或并发调用互相覆盖半个文件。
type FileBackend struct {
	Path string
}

const secretFileMode = os.FileMode(0o600)

func (f *FileBackend) Load() ([]byte, *errors.TError) {
	info, err := os.Stat(f.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.Wrap(errors.CodeInternal, "failed to stat credentials file", map[string]any{"path": f.Path}, err)
	}
	// group/world 可读的密文文件一律拒绝
	if info.Mode().Perm()&0o077 != 0 {
		return nil, errors.New(errors.CodePermission, "credentials file is readable by group/others", map[string]any{
			"path": f.Path,
			"mode": info.Mode().Perm().String(),
		})
	}
	b, err := os.ReadFile(f.Path)
	if err != nil {
		return nil, errors.Wrap(errors.CodeInternal, "failed to read credentials file", map[string]any{"path": f.Path}, err)
	}
	return b, nil
}

func (f *FileBackend) Store(data []byte) *errors.TError {
	if err := os.MkdirAll(filepath.Dir(f.Path), 0o700); err != nil {
		return errors.Wrap(errors.CodeInternal, "failed to create data dir", map[string]any{"path": f.Path}, err)
	}
	if err := atomic.WriteFile(f.Path, bytes.NewReader(data)); err != nil {
		return errors.Wrap(errors.CodeInternal, "failed to write credentials file", map[string]any{"path": f.Path}, err)
	}
	if err := os.Chmod(f.Path, secretFileMode); err != nil {
		return errors.Wrap(errors.CodePermission, "failed to restrict credentials file mode", map[string]any{"path": f.Path}, err)
	}
	return nil
}
