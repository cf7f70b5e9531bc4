package todoapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"todoperf/internal/config"

	"github.com/jmespath/go-jmespath"
)

// Entity binds a client to one entity kind, e.g. todos.
type Entity struct {
	client *Client
	kind   string
	cfg    config.EntityConfig
}

// Entity returns the CRUD helpers for kind.
func (c *Client) Entity(kind string, cfg config.EntityConfig) *Entity {
	return &Entity{client: c, kind: kind, cfg: cfg}
}

// Kind returns the collection name.
func (e *Entity) Kind() string {
	return e.kind
}

func (e *Entity) collectionPath() string {
	return "/" + e.kind
}

func (e *Entity) itemPath(id string) string {
	return "/" + e.kind + "/" + url.PathEscape(id)
}

func (e *Entity) request(method, path string, body interface{}) Request {
	return Request{Method: method, Path: path, Body: body, Format: e.cfg.Format, Root: e.cfg.Singular}
}

// List fetches the whole collection.
func (e *Entity) List(ctx context.Context) (*Response, error) {
	return e.client.Get(ctx, e.collectionPath())
}

// ListIDs fetches the collection and extracts every id from it.
func (e *Entity) ListIDs(ctx context.Context) ([]string, error) {
	resp, err := e.List(ctx)
	if err != nil {
		return nil, err
	}
	if !resp.OK() {
		return nil, &StatusError{Method: http.MethodGet, Path: e.collectionPath(), StatusCode: resp.StatusCode, Body: string(resp.Body)}
	}
	return IDs(resp.Body, e.cfg.ListIDs)
}

// Create posts body to the collection.
func (e *Entity) Create(ctx context.Context, body interface{}) (*Response, error) {
	return e.client.Do(ctx, e.request(http.MethodPost, e.collectionPath(), body))
}

// Update replaces an item with PUT.
func (e *Entity) Update(ctx context.Context, id string, body interface{}) (*Response, error) {
	return e.client.Do(ctx, e.request(http.MethodPut, e.itemPath(id), body))
}

// Delete removes an item.
func (e *Entity) Delete(ctx context.Context, id string) (*Response, error) {
	return e.client.Do(ctx, Request{Method: http.MethodDelete, Path: e.itemPath(id)})
}

// CreatedID extracts the id of a newly created item from a create response.
func (e *Entity) CreatedID(resp *Response) (string, error) {
	return ID(resp.Body, e.cfg.CreatedID)
}

// Link relates item id to targetID through relation, e.g.
// POST /categories/1/projects {"id": "2"}.
func (e *Entity) Link(ctx context.Context, id, relation, targetID string) (*Response, error) {
	body := map[string]string{"id": targetID}
	return e.client.Do(ctx, Request{Method: http.MethodPost, Path: e.relationPath(id, relation), Body: body, Format: config.FormatJSON})
}

// Related lists the items related to id through relation.
func (e *Entity) Related(ctx context.Context, id, relation string) (*Response, error) {
	return e.client.Get(ctx, e.relationPath(id, relation))
}

// Unlink removes the relation between id and targetID.
func (e *Entity) Unlink(ctx context.Context, id, relation, targetID string) (*Response, error) {
	path := e.relationPath(id, relation) + "/" + url.PathEscape(targetID)
	return e.client.Do(ctx, Request{Method: http.MethodDelete, Path: path})
}

func (e *Entity) relationPath(id, relation string) string {
	return e.itemPath(id) + "/" + relation
}

// IDs evaluates expr against a JSON body and returns the matched values as
// strings. A missing collection yields no ids.
func IDs(body []byte, expr string) ([]string, error) {
	result, err := search(body, expr)
	if err != nil {
		return nil, err
	}
	if result == nil {
		return nil, nil
	}

	values, ok := result.([]interface{})
	if !ok {
		return []string{stringify(result)}, nil
	}
	ids := make([]string, 0, len(values))
	for _, v := range values {
		if v == nil {
			continue
		}
		ids = append(ids, stringify(v))
	}
	return ids, nil
}

// ID evaluates expr against a JSON body and returns a single id.
func ID(body []byte, expr string) (string, error) {
	result, err := search(body, expr)
	if err != nil {
		return "", err
	}
	switch v := result.(type) {
	case nil:
		return "", fmt.Errorf("no id found at %q", expr)
	case []interface{}:
		if len(v) == 0 || v[0] == nil {
			return "", fmt.Errorf("no id found at %q", expr)
		}
		return stringify(v[0]), nil
	default:
		return stringify(v), nil
	}
}

func search(body []byte, expr string) (interface{}, error) {
	var data interface{}
	if err := json.Unmarshal(body, &data); err != nil {
		return nil, fmt.Errorf("failed to parse response body: %w", err)
	}
	result, err := jmespath.Search(expr, data)
	if err != nil {
		return nil, fmt.Errorf("failed to evaluate %q: %w", expr, err)
	}
	return result, nil
}

// stringify renders JSON scalars without float formatting noise.
func stringify(v interface{}) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return fmt.Sprint(t)
	}
}
