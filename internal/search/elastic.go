// Package search mirrors profiles into Elasticsearch for browse queries.
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"skillswap/internal/models"

	es "github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	"github.com/elastic/go-elasticsearch/v8/esutil"
)

// IdxUsers is the profile index name.
const IdxUsers = "users_v1"

// ErrStale is returned by SearchUserIDs after a document write failed and
// before the next successful backfill.
var ErrStale = errors.New("search index is stale")

const (
	pageSize = 500

	usersMapping = `{"settings":{"number_of_shards":1},"mappings":{"dynamic":"strict","properties":{
		"id":{"type":"long"},"username":{"type":"keyword"},"name":{"type":"text"},
		"location":{"type":"keyword"},"is_public":{"type":"boolean"},
		"availability":{"type":"keyword"},"skills":{"type":"keyword"},
		"updated_at":{"type":"date"}
	}}}`
)

// Connect builds a client for the cluster at url.
func Connect(url string) (*es.Client, error) {
	client, err := es.NewClient(es.Config{Addresses: []string{url}})
	if err != nil {
		return nil, fmt.Errorf("create elasticsearch client: %w", err)
	}
	return client, nil
}

// UserDocument is the indexed shape of a profile. Text fields are
// lowercased so wildcard queries match case-insensitively.
type UserDocument struct {
	ID           uint     `json:"id"`
	Username     string   `json:"username"`
	Name         string   `json:"name"`
	Location     string   `json:"location"`
	IsPublic     bool     `json:"is_public"`
	Availability []string `json:"availability"`
	Skills       []string `json:"skills"`
	UpdatedAt    string   `json:"updated_at"`
}

// DocumentFor builds the document for user. Skills must be populated.
func DocumentFor(user *models.User) UserDocument {
	doc := UserDocument{
		ID:           user.ID,
		Username:     user.Username,
		Name:         user.Name,
		Location:     strings.ToLower(user.Location),
		IsPublic:     user.IsPublic,
		Availability: make([]string, 0, len(user.Availability)),
		Skills:       make([]string, 0, len(user.SkillsOffered)+len(user.SkillsWanted)),
		UpdatedAt:    user.UpdatedAt.UTC().Format(time.RFC3339),
	}
	for _, d := range user.Availability {
		doc.Availability = append(doc.Availability, string(d))
	}
	for _, s := range append(append([]models.Skill{}, user.SkillsOffered...), user.SkillsWanted...) {
		doc.Skills = append(doc.Skills, strings.ToLower(s.Name))
	}
	return doc
}

// UserIndex reads and writes the profile index.
type UserIndex struct {
	client   *es.Client
	index    string
	pageSize int
	stale    atomic.Bool
}

// NewUserIndex returns a UserIndex over client.
func NewUserIndex(client *es.Client) *UserIndex {
	return &UserIndex{client: client, index: IdxUsers, pageSize: pageSize}
}

// EnsureIndex creates the index with its mapping when missing.
func (x *UserIndex) EnsureIndex(ctx context.Context) error {
	exists, err := x.client.Indices.Exists([]string{x.index}, x.client.Indices.Exists.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("check index %s: %w", x.index, err)
	}
	_ = exists.Body.Close()
	if exists.StatusCode == 200 {
		return nil
	}
	res, err := x.client.Indices.Create(x.index,
		x.client.Indices.Create.WithBody(bytes.NewBufferString(usersMapping)),
		x.client.Indices.Create.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("create index %s: %w", x.index, err)
	}
	return checkResponse(res, "create index")
}

// IndexUser writes user's document, replacing any previous version. A
// failed write marks the index stale.
func (x *UserIndex) IndexUser(ctx context.Context, user *models.User) (err error) {
	defer func() {
		if err != nil {
			x.stale.Store(true)
		}
	}()
	res, err := x.client.Index(x.index, esutil.NewJSONReader(DocumentFor(user)),
		x.client.Index.WithDocumentID(docID(user.ID)),
		x.client.Index.WithRefresh("true"),
		x.client.Index.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("index user %d: %w", user.ID, err)
	}
	return checkResponse(res, "index user")
}

// BulkIndex writes every user in one bulk session. Skills must be populated.
func (x *UserIndex) BulkIndex(ctx context.Context, users []models.User) error {
	if len(users) == 0 {
		return nil
	}

	var (
		mu    sync.Mutex
		first string
	)
	record := func(msg string) {
		mu.Lock()
		defer mu.Unlock()
		if first == "" {
			first = msg
		}
	}

	bi, err := esutil.NewBulkIndexer(esutil.BulkIndexerConfig{
		Client:     x.client,
		Index:      x.index,
		NumWorkers: 1,
		FlushBytes: 5 << 20,
		Refresh:    "true",
		OnError:    func(_ context.Context, err error) { record(err.Error()) },
	})
	if err != nil {
		return fmt.Errorf("create bulk indexer: %w", err)
	}

	for i := range users {
		body, err := json.Marshal(DocumentFor(&users[i]))
		if err != nil {
			_ = bi.Close(ctx)
			return fmt.Errorf("encode user %d: %w", users[i].ID, err)
		}
		err = bi.Add(ctx, esutil.BulkIndexerItem{
			Action:     "index",
			DocumentID: docID(users[i].ID),
			Body:       bytes.NewReader(body),
			OnFailure: func(_ context.Context, item esutil.BulkIndexerItem, res esutil.BulkIndexerResponseItem, err error) {
				switch {
				case err != nil:
					record("user " + item.DocumentID + ": " + err.Error())
				case res.Error.Reason != "":
					record(fmt.Sprintf("user %s: %s: %s", item.DocumentID, res.Error.Type, res.Error.Reason))
				default:
					record(fmt.Sprintf("user %s: status=%d", item.DocumentID, res.Status))
				}
			},
		})
		if err != nil {
			_ = bi.Close(ctx)
			return fmt.Errorf("queue user %d: %w", users[i].ID, err)
		}
	}
	if err := bi.Close(ctx); err != nil {
		return fmt.Errorf("flush bulk index: %w", err)
	}

	stats := bi.Stats()
	mu.Lock()
	defer mu.Unlock()
	if stats.NumFailed > 0 || first != "" {
		return fmt.Errorf("bulk index: %d of %d documents failed, first: %s", stats.NumFailed, len(users), first)
	}
	return nil
}

// MarkSynced clears the stale flag once a full backfill has succeeded.
func (x *UserIndex) MarkSynced() {
	x.stale.Store(false)
}

// Stale reports whether a document write has failed since the last backfill.
func (x *UserIndex) Stale() bool {
	return x.stale.Load()
}

// SearchUserIDs returns the ids of every public user matching filter,
// ascending. Results are paged with search_after on id, so there is no cap.
func (x *UserIndex) SearchUserIDs(ctx context.Context, filter models.BrowseFilter) ([]uint, error) {
	if x.stale.Load() {
		return nil, ErrStale
	}
	var ids []uint
	var after *uint
	for {
		page, err := x.searchPage(ctx, buildQuery(filter, x.pageSize, after))
		if err != nil {
			return nil, err
		}
		ids = append(ids, page...)
		if len(page) < x.pageSize {
			return ids, nil
		}
		last := page[len(page)-1]
		after = &last
	}
}

func (x *UserIndex) searchPage(ctx context.Context, query map[string]interface{}) ([]uint, error) {
	res, err := x.client.Search(
		x.client.Search.WithContext(ctx),
		x.client.Search.WithIndex(x.index),
		x.client.Search.WithBody(esutil.NewJSONReader(query)),
	)
	if err != nil {
		return nil, fmt.Errorf("search users: %w", err)
	}
	defer func() { _ = res.Body.Close() }()
	if res.IsError() {
		return nil, fmt.Errorf("search users: %s", res.Status())
	}
	return decodeHits(res.Body)
}

func decodeHits(r io.Reader) ([]uint, error) {
	var body struct {
		Hits struct {
			Hits []struct {
				Source struct {
					ID uint `json:"id"`
				} `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(r).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}
	ids := make([]uint, 0, len(body.Hits.Hits))
	for _, h := range body.Hits.Hits {
		ids = append(ids, h.Source.ID)
	}
	return ids, nil
}

func docID(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}

func buildQuery(filter models.BrowseFilter, size int, after *uint) map[string]interface{} {
	must := []interface{}{
		map[string]interface{}{"term": map[string]interface{}{"is_public": true}},
	}
	if s := strings.TrimSpace(filter.Skill); s != "" {
		must = append(must, wildcard("skills", s))
	}
	if l := strings.TrimSpace(filter.Location); l != "" {
		must = append(must, wildcard("location", l))
	}
	for _, d := range filter.Availability {
		must = append(must, map[string]interface{}{"term": map[string]interface{}{"availability": string(d)}})
	}
	query := map[string]interface{}{
		"size":    size,
		"_source": []string{"id"},
		"sort":    []interface{}{map[string]interface{}{"id": "asc"}},
		"query":   map[string]interface{}{"bool": map[string]interface{}{"filter": must}},
	}
	if after != nil {
		query["search_after"] = []interface{}{*after}
	}
	return query
}

func wildcard(field, value string) map[string]interface{} {
	escaped := strings.NewReplacer(`\`, `\\`, `*`, `\*`, `?`, `\?`).Replace(strings.ToLower(value))
	return map[string]interface{}{"wildcard": map[string]interface{}{
		field: map[string]interface{}{"value": "*" + escaped + "*"},
	}}
}

func checkResponse(res *esapi.Response, op string) error {
	defer func() { _ = res.Body.Close() }()
	if res.IsError() {
		msg, _ := io.ReadAll(io.LimitReader(res.Body, 512))
		return fmt.Errorf("%s: %s: %s", op, res.Status(), strings.TrimSpace(string(msg)))
	}
	return nil
}
