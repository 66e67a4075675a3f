package knowledge

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/koopa0/chinchilla/internal/testutil"
)

// fakeRow is one row the fake database hands back from Search.
type fakeRow struct {
	id         string
	content    string
	metadata   map[string]string
	minAge     *int
	createdAt  time.Time
	similarity float32
}

type fakeRows struct {
	rows []fakeRow
	idx  int
	err  error
}

func (r *fakeRows) Close()                                       {}
func (r *fakeRows) Err() error                                   { return r.err }
func (r *fakeRows) CommandTag() pgconn.CommandTag                { return pgconn.CommandTag{} }
func (r *fakeRows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (r *fakeRows) Values() ([]any, error)                       { return nil, nil }
func (r *fakeRows) RawValues() [][]byte                          { return nil }
func (r *fakeRows) Conn() *pgx.Conn                              { return nil }

func (r *fakeRows) Next() bool {
	if r.idx >= len(r.rows) {
		return false
	}
	r.idx++
	return true
}

func (r *fakeRows) Scan(dest ...any) error {
	row := r.rows[r.idx-1]
	*dest[0].(*string) = row.id
	*dest[1].(*string) = row.content
	meta, err := json.Marshal(row.metadata)
	if err != nil {
		return err
	}
	*dest[2].(*[]byte) = meta
	*dest[3].(**int) = row.minAge
	*dest[4].(*time.Time) = row.createdAt
	*dest[5].(*float32) = row.similarity
	return nil
}

type scalarRow struct {
	value int64
	err   error
}

func (r scalarRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	switch d := dest[0].(type) {
	case *int64:
		*d = r.value
	case *int:
		*d = int(r.value)
	}
	return nil
}

// fakeDB records the queries the store issues.
type fakeDB struct {
	querySQL  string
	queryArgs []any
	rows      *fakeRows
	queryErr  error

	execSQL  string
	execArgs []any
	execErr  error

	scalar scalarRow
}

func (f *fakeDB) Query(_ context.Context, sql string, args ...any) (pgx.Rows, error) {
	f.querySQL, f.queryArgs = sql, args
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	if f.rows == nil {
		f.rows = &fakeRows{}
	}
	return f.rows, nil
}

func (f *fakeDB) QueryRow(_ context.Context, sql string, args ...any) pgx.Row {
	f.querySQL, f.queryArgs = sql, args
	return f.scalar
}

func (f *fakeDB) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	f.execSQL, f.execArgs = sql, args
	return pgconn.CommandTag{}, f.execErr
}

func TestAddValidation(t *testing.T) {
	store := New(&fakeDB{}, testutil.NewMockEmbedder(), nil)
	ctx := context.Background()

	err := store.Add(ctx, Document{Content: "text"})
	assert.ErrorContains(t, err, "collection")

	err = store.Add(ctx, Document{Collection: "jobs"})
	assert.ErrorContains(t, err, "content")
}

func TestAddAssignsIDAndBindsColumns(t *testing.T) {
	db := &fakeDB{}
	store := New(db, testutil.NewMockEmbedder(), nil)

	age := 65
	err := store.Add(context.Background(), Document{
		Collection: "jobs",
		Content:    "시니어 경비 채용",
		Metadata:   map[string]string{"province": "경기도"},
		MinAge:     &age,
	})
	require.NoError(t, err)

	require.Len(t, db.execArgs, 6)
	assert.NotEmpty(t, db.execArgs[0], "ID should be generated")
	assert.Equal(t, "jobs", db.execArgs[1])
	assert.Equal(t, "시니어 경비 채용", db.execArgs[2])
	assert.JSONEq(t, `{"province":"경기도"}`, string(db.execArgs[4].([]byte)))
	assert.Equal(t, &age, db.execArgs[5].(*int))
	assert.Contains(t, db.execSQL, "ON CONFLICT (id) DO UPDATE")
}

func TestAddEmbedderFailure(t *testing.T) {
	embedder := testutil.NewMockEmbedder()
	embedder.Err = errors.New("quota exceeded")
	store := New(&fakeDB{}, embedder, nil)

	err := store.Add(context.Background(), Document{Collection: "jobs", Content: "text"})
	assert.ErrorContains(t, err, "quota exceeded")
}

func TestSearchBindsFilterAndAge(t *testing.T) {
	age := 70
	db := &fakeDB{rows: &fakeRows{rows: []fakeRow{
		{id: "a", content: "doc a", metadata: map[string]string{"province": "서울특별시"}, minAge: &age, similarity: 0.91},
		{id: "b", content: "doc b", similarity: 0.72},
	}}}
	store := New(db, testutil.NewMockEmbedder(), nil)

	results, err := store.Search(context.Background(), "jobs", "일자리",
		WithTopK(7),
		WithFilter("province", "서울특별시"),
		WithFilter("city", "종로구"),
		WithEligibleAge(68))
	require.NoError(t, err)

	// args: embedding, collection, filter, age, limit
	require.Len(t, db.queryArgs, 5)
	assert.Equal(t, "jobs", db.queryArgs[1])
	assert.JSONEq(t, `{"province":"서울특별시","city":"종로구"}`, string(db.queryArgs[2].([]byte)))
	require.NotNil(t, db.queryArgs[3])
	assert.Equal(t, 68, *db.queryArgs[3].(*int))
	assert.Equal(t, 7, db.queryArgs[4])

	require.Len(t, results, 2)
	assert.Equal(t, "jobs", results[0].Document.Collection)
	assert.InDelta(t, 0.91, results[0].Similarity, 1e-6)
	assert.Equal(t, &age, results[0].Document.MinAge)
	assert.Nil(t, results[1].Document.MinAge)
}

func TestSearchNoFilterPassesNulls(t *testing.T) {
	db := &fakeDB{}
	store := New(db, testutil.NewMockEmbedder(), nil)

	_, err := store.Search(context.Background(), "welfare", "돌봄 서비스")
	require.NoError(t, err)

	require.Len(t, db.queryArgs, 5)
	assert.Nil(t, db.queryArgs[2], "filter should be NULL when unset")
	assert.Nil(t, db.queryArgs[3], "age should be NULL when unset")
	assert.Equal(t, 5, db.queryArgs[4], "default top_k")
}

func TestSearchEmptyCollection(t *testing.T) {
	store := New(&fakeDB{}, testutil.NewMockEmbedder(), nil)
	_, err := store.Search(context.Background(), "", "query")
	assert.ErrorContains(t, err, "collection")
}

func TestSearchQueryFailure(t *testing.T) {
	db := &fakeDB{queryErr: errors.New("connection reset")}
	store := New(db, testutil.NewMockEmbedder(), nil)

	_, err := store.Search(context.Background(), "jobs", "query")
	assert.ErrorContains(t, err, "connection reset")
}

func TestCount(t *testing.T) {
	db := &fakeDB{scalar: scalarRow{value: 42}}
	store := New(db, testutil.NewMockEmbedder(), nil)

	n, err := store.Count(context.Background(), "jobs")
	require.NoError(t, err)
	assert.Equal(t, 42, n)
	assert.Contains(t, db.querySQL, "WHERE collection = $1")

	n, err = store.Count(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, 42, n)
	assert.NotContains(t, db.querySQL, "WHERE")
}

func TestBuildSearchConfigDefaults(t *testing.T) {
	cfg := buildSearchConfig(nil)
	assert.Equal(t, 5, cfg.topK)
	assert.Equal(t, 10*time.Second, cfg.timeout)
	assert.Nil(t, cfg.filter)
	assert.Nil(t, cfg.eligibleAge)

	// Non-positive values keep defaults.
	cfg = buildSearchConfig([]SearchOption{WithTopK(0), WithTimeout(-time.Second)})
	assert.Equal(t, 5, cfg.topK)
	assert.Equal(t, 10*time.Second, cfg.timeout)
}
