package repository_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yeisme/snipvault/pkg/internal/repository"
	"github.com/yeisme/snipvault/pkg/internal/snippet"
)

var fixedNow = time.Date(2024, 5, 1, 10, 20, 30, 0, time.UTC)

// indexStub 模拟索引：首次调用时写入占位索引文件.
type indexStub struct {
	fs    billy.Filesystem
	calls int
}

func (s *indexStub) EnsureIndex(context.Context) error {
	s.calls++

	if _, err := s.fs.Stat(repository.DefaultIndexFile); err == nil {
		return nil
	}

	return util.WriteFile(s.fs, repository.DefaultIndexFile, []byte("<?php\n// index"), 0o644)
}

func newRepo(t *testing.T) (*repository.Repository, billy.Filesystem, *indexStub) {
	t.Helper()

	fs := memfs.New()
	repo := repository.New(fs, repository.WithClock(func() time.Time { return fixedNow }))
	stub := &indexStub{fs: fs}
	repo.UseIndex(stub)

	return repo, fs, stub
}

// TestCreateFirstRecord 测试首条记录：先创建索引，文件名序号为 1 之后的计数.
func TestCreateFirstRecord(t *testing.T) {
	repo, fs, stub := newRepo(t)
	ctx := repository.WithActor(context.Background(), "42")

	id, err := repo.Create(ctx, "echo 1;", snippet.NewMeta("name", "Hello World"))
	require.NoError(t, err)
	assert.Equal(t, "1-hello-world.php", id)
	assert.Equal(t, 1, stub.calls)

	_, err = fs.Stat(repository.DefaultIndexFile)
	require.NoError(t, err)

	rec, err := repo.Find(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Hello World", rec.Meta.Name())
	assert.Equal(t, "draft", rec.Meta.Value("status"))
	assert.Equal(t, "PHP", rec.Meta.Type())
	assert.Equal(t, "42", rec.Meta.Value("created_by"))
	assert.Equal(t, "2024-05-01 10:20:30", rec.Meta.CreatedAt())
	assert.Equal(t, "10", rec.Meta.Value("priority"))
	assert.Equal(t, "1", rec.Meta.Value("is_valid"))
	assert.Equal(t, "<?php\necho 1;", rec.Body)

	id, err = repo.Create(ctx, "echo 2;", snippet.NewMeta("name", "Second"))
	require.NoError(t, err)
	assert.Equal(t, "2-second.php", id)
}

// TestCreateDefaultName 测试缺少名称时的默认名.
func TestCreateDefaultName(t *testing.T) {
	repo, _, _ := newRepo(t)
	ctx := context.Background()

	id, err := repo.Create(ctx, "", nil)
	require.NoError(t, err)

	rec, err := repo.Find(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Snippet Created @ 2024-05-01 10:20:30", rec.Meta.Name())
	assert.Equal(t, "0", rec.Meta.Value("created_by"))
}

// TestCreateNameInUse 测试删除后计数回退导致文件名冲突.
func TestCreateNameInUse(t *testing.T) {
	repo, _, _ := newRepo(t)
	ctx := context.Background()

	a, err := repo.Create(ctx, "", snippet.NewMeta("name", "a"))
	require.NoError(t, err)

	_, err = repo.Create(ctx, "", snippet.NewMeta("name", "b"))
	require.NoError(t, err)

	require.NoError(t, repo.Delete(ctx, a))

	// 目录中剩 index.php 与 2-b.php，下一个序号又是 2
	_, err = repo.Create(ctx, "", snippet.NewMeta("name", "b"))
	assert.ErrorIs(t, err, repository.ErrNameInUse)

	id, err := repo.Create(ctx, "", snippet.NewMeta("name", "c"))
	require.NoError(t, err)
	assert.Equal(t, "2-c.php", id)
}

// TestReservedIndexFile 测试保留文件对查询与删除不可见.
func TestReservedIndexFile(t *testing.T) {
	repo, _, _ := newRepo(t)
	ctx := context.Background()

	_, err := repo.Create(ctx, "", snippet.NewMeta("name", "a"))
	require.NoError(t, err)

	_, err = repo.Find(ctx, repository.DefaultIndexFile)
	assert.ErrorIs(t, err, repository.ErrNotFound)

	err = repo.Delete(ctx, repository.DefaultIndexFile)
	assert.ErrorIs(t, err, repository.ErrNotFound)

	_, err = repo.Update(ctx, repository.DefaultIndexFile, "", snippet.NewMeta())
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

// TestInvalidIDs 测试路径穿越等非法 ID.
func TestInvalidIDs(t *testing.T) {
	repo, _, _ := newRepo(t)
	ctx := context.Background()

	for _, id := range []string{"", "../x.php", "a/b.php", `a\b.php`, ".."} {
		_, err := repo.Find(ctx, id)
		assert.ErrorIs(t, err, repository.ErrNotFound, id)
	}
}

// TestUpdate 测试更新保持 ID 与创建时间.
func TestUpdate(t *testing.T) {
	fs := memfs.New()
	now := fixedNow
	repo := repository.New(fs, repository.WithClock(func() time.Time { return now }))
	ctx := context.Background()

	id, err := repo.Create(ctx, "echo 1;", snippet.NewMeta("name", "Orig", "custom", "keep"))
	require.NoError(t, err)

	now = fixedNow.Add(time.Hour)
	meta := snippet.NewMeta("name", "Renamed", "status", "published", "created_at", "1999-01-01 00:00:00", "priority", "abc")

	got, err := repo.Update(repository.WithActor(ctx, "7"), id, "<?php\necho 2;", meta)
	require.NoError(t, err)
	assert.Equal(t, id, got)

	rec, err := repo.Find(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", rec.Meta.Name())
	assert.Equal(t, "published", rec.Status())
	assert.Equal(t, "2024-05-01 10:20:30", rec.Meta.CreatedAt())
	assert.Equal(t, "2024-05-01 11:20:30", rec.Meta.UpdatedAt())
	assert.Equal(t, "7", rec.Meta.Value("updated_by"))
	assert.Equal(t, "0", rec.Meta.Value("created_by"))
	assert.Equal(t, "10", rec.Meta.Value("priority"))
	assert.Equal(t, "<?php\necho 2;", rec.Body)

	_, err = repo.Update(ctx, "9-missing.php", "", meta)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

// TestDeleteMissing 测试删除不存在的记录.
func TestDeleteMissing(t *testing.T) {
	repo, _, _ := newRepo(t)

	err := repo.Delete(context.Background(), "1-nope.php")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

// TestScanSkipsNonRecords 测试扫描跳过非记录文件并报告损坏文件.
func TestScanSkipsNonRecords(t *testing.T) {
	repo, fs, _ := newRepo(t)
	ctx := context.Background()

	_, err := repo.Create(ctx, "", snippet.NewMeta("name", "a"))
	require.NoError(t, err)

	require.NoError(t, util.WriteFile(fs, "plain.php", []byte("<?php // nothing"), 0o644))
	require.NoError(t, util.WriteFile(fs, "notes.txt", []byte("x"), 0o644))
	require.NoError(t, util.WriteFile(fs, "9-broken.php", []byte("<?php\n// <Internal Doc Start>\n/* @name: b"), 0o644))
	require.NoError(t, fs.MkdirAll("dir.php", 0o755))

	res, err := repo.Scan(ctx)
	require.NoError(t, err)
	require.Len(t, res.Records, 1)
	assert.Equal(t, "1-a.php", res.Records[0].ID)
	require.Len(t, res.Failures, 1)
	assert.Equal(t, "9-broken.php", res.Failures[0].File)
	assert.ErrorIs(t, res.Failures[0].Err, snippet.ErrMalformed)

	_, err = repo.Find(ctx, "plain.php")
	assert.ErrorIs(t, err, snippet.ErrNotRecord)
}

// TestListOrderAndFilter 测试列表顺序与状态过滤.
func TestListOrderAndFilter(t *testing.T) {
	repo, _, _ := newRepo(t)
	ctx := context.Background()

	for i, status := range []string{"published", "draft", "published"} {
		_, err := repo.Create(ctx, "", snippet.NewMeta("name", fmt.Sprintf("s%d", i), "status", status))
		require.NoError(t, err)
	}

	all, err := repo.List(ctx, repository.ListOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{"1-s0.php", "2-s1.php", "3-s2.php"}, ids(all))

	published, err := repo.List(ctx, repository.ListOptions{Status: "published", NewFirst: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"3-s2.php", "1-s0.php"}, ids(published))
}

// TestPaginate 测试分页.
func TestPaginate(t *testing.T) {
	fs := memfs.New()
	repo := repository.New(fs)
	ctx := context.Background()

	for i := range 25 {
		name := fmt.Sprintf("%02d-item.php", i)
		raw, err := snippet.Encode(snippet.NewMeta("name", name), "")
		require.NoError(t, err)
		require.NoError(t, util.WriteFile(fs, name, raw, 0o644))
	}

	page, err := repo.Paginate(ctx, 10, 2, "")
	require.NoError(t, err)
	assert.Equal(t, 25, page.Total)
	assert.Equal(t, 3, page.LastPage)
	assert.Equal(t, 2, page.CurrentPage)
	assert.Equal(t, 10, page.PerPage)
	require.Len(t, page.Data, 10)
	assert.Equal(t, "14-item.php", page.Data[0].ID)

	page, err = repo.Paginate(ctx, 10, 3, "")
	require.NoError(t, err)
	assert.Len(t, page.Data, 5)

	page, err = repo.Paginate(ctx, 10, 9, "")
	require.NoError(t, err)
	assert.Empty(t, page.Data)

	page, err = repo.Paginate(ctx, 0, 0, "")
	require.NoError(t, err)
	assert.Equal(t, 10, page.PerPage)
	assert.Equal(t, 1, page.CurrentPage)

	empty, err := repository.New(memfs.New()).Paginate(ctx, 10, 1, "")
	require.NoError(t, err)
	assert.Equal(t, 0, empty.Total)
	assert.Equal(t, 0, empty.LastPage)
}

// TestPaginateCreatedRecords 测试超过 9 条记录后仍按创建顺序倒序.
func TestPaginateCreatedRecords(t *testing.T) {
	repo, _, _ := newRepo(t)
	ctx := context.Background()

	for i := 1; i <= 12; i++ {
		id, err := repo.Create(ctx, "", snippet.NewMeta("name", fmt.Sprintf("s%d", i)))
		require.NoError(t, err)
		assert.Equal(t, fmt.Sprintf("%d-s%d.php", i, i), id)
	}

	page, err := repo.Paginate(ctx, 3, 1, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"12-s12.php", "11-s11.php", "10-s10.php"}, ids(page.Data))

	page, err = repo.Paginate(ctx, 3, 2, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"9-s9.php", "8-s8.php", "7-s7.php"}, ids(page.Data))

	res, err := repo.Scan(ctx)
	require.NoError(t, err)
	assert.Equal(t, "1-s1.php", res.Records[0].ID)
	assert.Equal(t, "12-s12.php", res.Records[11].ID)
}

// TestListSequenceBeforeOtherNames 测试无序号前缀的文件排在序号文件之后.
func TestListSequenceBeforeOtherNames(t *testing.T) {
	fs := memfs.New()
	repo := repository.New(fs)
	ctx := context.Background()

	for _, name := range []string{"abc.php", "10-x.php", "2-y.php", "02-z.php"} {
		raw, err := snippet.Encode(snippet.NewMeta("name", name), "")
		require.NoError(t, err)
		require.NoError(t, util.WriteFile(fs, name, raw, 0o644))
	}

	all, err := repo.List(ctx, repository.ListOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{"02-z.php", "2-y.php", "10-x.php", "abc.php"}, ids(all))
}

// TestCreateWithoutIndex 测试未注入索引时序号仍计入保留文件.
func TestCreateWithoutIndex(t *testing.T) {
	repo := repository.New(memfs.New())
	ctx := context.Background()

	a, err := repo.Create(ctx, "", snippet.NewMeta("name", "same"))
	require.NoError(t, err)
	assert.Equal(t, "1-same.php", a)

	b, err := repo.Create(ctx, "", snippet.NewMeta("name", "same"))
	require.NoError(t, err)
	assert.Equal(t, "2-same.php", b)
}

// TestCanceledContext 测试取消的 context.
func TestCanceledContext(t *testing.T) {
	repo, _, _ := newRepo(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := repo.Create(ctx, "", snippet.NewMeta())
	assert.ErrorIs(t, err, context.Canceled)

	_, err = repo.Find(ctx, "1-a.php")
	assert.ErrorIs(t, err, context.Canceled)
}

// TestWriteFileAtomic 测试原子写覆盖与无临时文件残留.
func TestWriteFileAtomic(t *testing.T) {
	fs := memfs.New()

	require.NoError(t, repository.WriteFileAtomic(fs, "a.php", []byte("one")))
	require.NoError(t, repository.WriteFileAtomic(fs, "a.php", []byte("two")))

	got, err := util.ReadFile(fs, "a.php")
	require.NoError(t, err)
	assert.Equal(t, "two", string(got))

	infos, err := fs.ReadDir("/")
	require.NoError(t, err)
	assert.Len(t, infos, 1)
}

func ids(records []*snippet.Record) []string {
	out := make([]string, 0, len(records))
	for _, r := range records {
		out = append(out, r.ID)
	}

	return out
}
