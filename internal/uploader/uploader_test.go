package uploader

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"datapush/internal/platform"
	"datapush/internal/table"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// ---- fakes ----

type fakeTable struct {
	pool *fakePool
	name string
}

func (t *fakeTable) Name() string { return t.name }

func (t *fakeTable) Append(ctx context.Context, rows platform.Rows) (int, error) {
	if t.pool.appendErr != nil {
		return 0, t.pool.appendErr
	}
	t.pool.appended = append(t.pool.appended, len(rows.Values))
	return len(rows.Values), nil
}

type fakePool struct {
	id        string
	exists    bool
	appendErr error
	createErr error

	appended []int
	created  []int
}

func (p *fakePool) ID() string { return p.id }

func (p *fakePool) Jobs(ctx context.Context) ([]platform.Job, error) { return nil, nil }

func (p *fakePool) CreateJob(ctx context.Context, name string) (platform.Job, error) {
	return nil, errors.New("not implemented")
}

func (p *fakePool) Table(ctx context.Context, name string) (platform.Table, error) {
	if !p.exists {
		return nil, platform.ErrNotFound
	}
	return &fakeTable{pool: p, name: name}, nil
}

func (p *fakePool) CreateTable(ctx context.Context, rows platform.Rows, name string) (int, error) {
	if p.createErr != nil {
		return 0, p.createErr
	}
	p.exists = true
	p.created = append(p.created, len(rows.Values))
	return len(rows.Values), nil
}

func newUploader(waits *[]time.Duration) *Uploader {
	u := New(testLogger())
	u.Wait = func(ctx context.Context, d time.Duration) error {
		*waits = append(*waits, d)
		return ctx.Err()
	}
	u.Now = func() time.Time { return time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC) }
	return u
}

func makeTable(rows int) *table.Table {
	tbl := &table.Table{
		Columns: []table.Column{{Name: "id", Kind: table.KindInt}},
	}
	for i := 0; i < rows; i++ {
		tbl.Rows = append(tbl.Rows, []any{int64(i)})
	}
	return tbl
}

// ---- tests ----

// TestUploadChunkingAndPacing streams 250 rows through a chunk size of 100
// and verifies chunk boundaries plus the pause pattern: one pause between
// each pair of consecutive chunks, none after the last.
func TestUploadChunkingAndPacing(t *testing.T) {
	t.Parallel()

	var waits []time.Duration
	u := newUploader(&waits)
	u.ChunkSize = 100
	pool := &fakePool{id: "p1", exists: true}

	res, err := u.Upload(context.Background(), pool, "orders", []string{"id"}, makeTable(250))
	if err != nil {
		t.Fatalf("Upload error = %v", err)
	}

	wantChunks := []int{100, 100, 50}
	if len(pool.appended) != len(wantChunks) {
		t.Fatalf("appended chunks = %v, want %v", pool.appended, wantChunks)
	}
	for i, n := range wantChunks {
		if pool.appended[i] != n {
			t.Fatalf("chunk %d size = %d, want %d", i, pool.appended[i], n)
		}
	}
	if len(waits) != 2 {
		t.Fatalf("pauses = %d, want 2", len(waits))
	}
	for _, d := range waits {
		if d != u.Pause {
			t.Fatalf("pause duration = %v, want %v", d, u.Pause)
		}
	}
	if res.Inserted != 250 || res.Records != 250 || res.Chunks != 3 {
		t.Fatalf("result = %+v, want 250 inserted in 3 chunks", res)
	}
	if res.PoolID != "p1" {
		t.Fatalf("pool id = %q, want p1", res.PoolID)
	}
}

func TestUploadSingleChunkNoPause(t *testing.T) {
	t.Parallel()

	var waits []time.Duration
	u := newUploader(&waits)
	u.ChunkSize = 100
	pool := &fakePool{id: "p1", exists: true}

	res, err := u.Upload(context.Background(), pool, "orders", []string{"id"}, makeTable(40))
	if err != nil {
		t.Fatalf("Upload error = %v", err)
	}
	if len(waits) != 0 {
		t.Fatalf("pauses = %d, want 0 for a single chunk", len(waits))
	}
	if res.Chunks != 1 || res.Inserted != 40 {
		t.Fatalf("result = %+v, want 40 rows in 1 chunk", res)
	}
}

// TestUploadCreatesMissingTable exercises the append-then-create fallback:
// the first chunk finds no table and creates it, later chunks append.
func TestUploadCreatesMissingTable(t *testing.T) {
	t.Parallel()

	var waits []time.Duration
	u := newUploader(&waits)
	u.ChunkSize = 100
	pool := &fakePool{id: "p1", exists: false}

	res, err := u.Upload(context.Background(), pool, "orders", []string{"id"}, makeTable(250))
	if err != nil {
		t.Fatalf("Upload error = %v", err)
	}
	if len(pool.created) != 1 || pool.created[0] != 100 {
		t.Fatalf("created = %v, want [100]", pool.created)
	}
	if len(pool.appended) != 2 {
		t.Fatalf("appended = %v, want two follow-up chunks", pool.appended)
	}
	if res.Inserted != 250 {
		t.Fatalf("inserted = %d, want 250", res.Inserted)
	}
}

// TestUploadFallsBackOnAppendRejection covers a target that rejects the
// append for a reason other than a missing table.
func TestUploadFallsBackOnAppendRejection(t *testing.T) {
	t.Parallel()

	var waits []time.Duration
	u := newUploader(&waits)
	u.ChunkSize = 100
	pool := &fakePool{id: "p1", exists: true, appendErr: errors.New("schema drift")}

	res, err := u.Upload(context.Background(), pool, "orders", []string{"id"}, makeTable(50))
	if err != nil {
		t.Fatalf("Upload error = %v", err)
	}
	if len(pool.created) != 1 || pool.created[0] != 50 {
		t.Fatalf("created = %v, want [50]", pool.created)
	}
	if res.Inserted != 50 {
		t.Fatalf("inserted = %d, want 50", res.Inserted)
	}
}

func TestUploadBothPathsFail(t *testing.T) {
	t.Parallel()

	var waits []time.Duration
	u := newUploader(&waits)
	u.ChunkSize = 100
	pool := &fakePool{
		id:        "p1",
		exists:    false,
		createErr: errors.New("pool is read-only"),
	}

	_, err := u.Upload(context.Background(), pool, "orders", []string{"id"}, makeTable(50))
	if err == nil {
		t.Fatalf("Upload succeeded, want chunk error")
	}
	var ce *ChunkError
	if !errors.As(err, &ce) {
		t.Fatalf("error = %T, want *ChunkError", err)
	}
	if ce.Start != 0 || ce.End != 50 {
		t.Fatalf("chunk range = %d-%d, want 0-50", ce.Start, ce.End)
	}
}

func TestUploadEmptyTable(t *testing.T) {
	t.Parallel()

	var waits []time.Duration
	u := newUploader(&waits)
	pool := &fakePool{id: "p1", exists: true}

	res, err := u.Upload(context.Background(), pool, "orders", []string{"id"}, makeTable(0))
	if err != nil {
		t.Fatalf("Upload error = %v", err)
	}
	if res.Chunks != 0 || res.Inserted != 0 {
		t.Fatalf("result = %+v, want no chunks", res)
	}
	if len(pool.appended)+len(pool.created) != 0 {
		t.Fatalf("requests made for empty table")
	}
}

func TestUploadCancelledDuringPause(t *testing.T) {
	t.Parallel()

	u := New(testLogger())
	u.ChunkSize = 10
	ctx, cancel := context.WithCancel(context.Background())
	u.Wait = func(ctx context.Context, d time.Duration) error {
		cancel()
		return ctx.Err()
	}
	pool := &fakePool{id: "p1", exists: true}

	_, err := u.Upload(ctx, pool, "orders", []string{"id"}, makeTable(25))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("error = %v, want context.Canceled", err)
	}
}
