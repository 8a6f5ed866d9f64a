package repository

import (
	"errors"
	"fmt"
	"os"

	"github.com/cespare/xxhash/v2"
	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"
)

const filePerm = 0o644

// WriteFileAtomic 先写同目录临时文件再 rename 覆盖目标，读者只会看到旧内容或新内容.
func WriteFileAtomic(fs billy.Filesystem, name string, data []byte) error {
	tmp, err := fs.TempFile("/", ".snipvault-")
	if err != nil {
		return storageErr("create temp", name, err)
	}

	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = fs.Remove(tmpName)

		return storageErr("write temp", name, err)
	}

	if err := tmp.Close(); err != nil {
		_ = fs.Remove(tmpName)
		return storageErr("close temp", name, err)
	}

	if err := fs.Rename(tmpName, name); err != nil {
		_ = fs.Remove(tmpName)
		return storageErr("rename", name, err)
	}

	return verify(fs, name, data)
}

// writeFileExclusive 仅当目标不存在时创建文件，目标已存在返回 ErrNameInUse.
func writeFileExclusive(fs billy.Filesystem, name string, data []byte) error {
	f, err := fs.OpenFile(name, os.O_WRONLY|os.O_CREATE|os.O_EXCL, filePerm)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return fmt.Errorf("%w: %s", ErrNameInUse, name)
		}

		return storageErr("create", name, err)
	}

	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		_ = fs.Remove(name)

		return storageErr("write", name, err)
	}

	if err := f.Close(); err != nil {
		_ = fs.Remove(name)
		return storageErr("close", name, err)
	}

	return verify(fs, name, data)
}

// verify 回读文件并比较摘要.
func verify(fs billy.Filesystem, name string, data []byte) error {
	got, err := util.ReadFile(fs, name)
	if err != nil {
		return storageErr("verify", name, err)
	}

	if xxhash.Sum64(got) != xxhash.Sum64(data) {
		return storageErr("verify", name, errors.New("content mismatch after write"))
	}

	return nil
}

func exists(fs billy.Filesystem, name string) (bool, error) {
	_, err := fs.Stat(name)
	if err == nil {
		return true, nil
	}

	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}

	return false, storageErr("stat", name, err)
}
