package repository

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound 记录不存在，或 ID 指向保留的索引文件.
	ErrNotFound = errors.New("snippet not found")
	// ErrNameInUse 分配到的文件名已被占用，调用方可以更换名称后重试.
	ErrNameInUse = errors.New("file name already in use")
	// ErrInvalidID ID 为空或包含路径分隔符，按不存在处理.
	ErrInvalidID = fmt.Errorf("%w: invalid id", ErrNotFound)
)

// StorageError 底层文件系统读写失败.
type StorageError struct {
	Op   string
	Path string
	Err  error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

func storageErr(op, path string, err error) error {
	return &StorageError{Op: op, Path: path, Err: err}
}

// IsStorageError 报告 err 链中是否包含 StorageError.
func IsStorageError(err error) bool {
	var se *StorageError
	return errors.As(err, &se)
}
