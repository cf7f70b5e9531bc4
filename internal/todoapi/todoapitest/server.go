// Package todoapitest provides an in-memory Todo Manager API for tests.
package todoapitest

import (
	"encoding/json"
	"encoding/xml"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"
)

// Server is a fake Todo Manager backed by maps. Ids are assigned from a
// single counter and rendered as strings, like the real server.
type Server struct {
	*httptest.Server

	mu        sync.Mutex
	nextID    int
	items     map[string]map[string]map[string]interface{}
	relations map[string]map[string]bool
	calls     map[string]int
	shutdowns int

	// CreateStatus, when set, overrides the status of POST /{kind}. Returning
	// 0 keeps the normal behaviour.
	CreateStatus func(kind string, n int) int
	// OnShutdown is called when GET /shutdown is received.
	OnShutdown func()
}

// NewServer starts a fake serving the given kinds.
func NewServer(kinds ...string) *Server {
	s := &Server{
		items:     make(map[string]map[string]map[string]interface{}),
		relations: make(map[string]map[string]bool),
		calls:     make(map[string]int),
	}
	for _, kind := range kinds {
		s.items[kind] = make(map[string]map[string]interface{})
	}
	s.Server = httptest.NewServer(http.HandlerFunc(s.serve))
	return s
}

// Calls returns how often "METHOD /kind" or "METHOD /kind/:id" was requested.
func (s *Server) Calls(key string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[key]
}

// Count returns the number of stored items of kind.
func (s *Server) Count(kind string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items[kind])
}

// Seed stores n items of kind directly.
func (s *Server) Seed(kind string, n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := 0; i < n; i++ {
		s.store(kind, map[string]interface{}{"title": "seed"})
	}
}

// Item returns a copy of a stored item.
func (s *Server) Item(kind, id string) (map[string]interface{}, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.items[kind][id]
	if !ok {
		return nil, false
	}
	out := make(map[string]interface{}, len(item))
	for k, v := range item {
		out[k] = v
	}
	return out, true
}

// Shutdowns returns how many shutdown requests were received.
func (s *Server) Shutdowns() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.shutdowns
}

func (s *Server) store(kind string, item map[string]interface{}) map[string]interface{} {
	s.nextID++
	id := strconv.Itoa(s.nextID)
	item["id"] = id
	s.items[kind][id] = item
	return item
}

func (s *Server) serve(w http.ResponseWriter, r *http.Request) {
	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")

	s.mu.Lock()
	key := r.Method + " /" + parts[0]
	if len(parts) > 1 {
		key += "/:id"
	}
	if len(parts) > 2 {
		key += "/" + parts[2]
	}
	s.calls[key]++

	if parts[0] == "shutdown" {
		s.shutdowns++
		hook := s.OnShutdown
		s.mu.Unlock()
		w.WriteHeader(http.StatusOK)
		if hook != nil {
			hook()
		}
		return
	}
	defer s.mu.Unlock()

	collection, ok := s.items[parts[0]]
	if !ok {
		http.NotFound(w, r)
		return
	}
	kind := parts[0]

	switch len(parts) {
	case 1:
		s.serveCollection(w, r, kind, collection)
	case 2:
		s.serveItem(w, r, kind, parts[1], collection)
	case 3, 4:
		s.serveRelation(w, r, kind, parts, collection)
	default:
		http.NotFound(w, r)
	}
}

func (s *Server) serveCollection(w http.ResponseWriter, r *http.Request, kind string, collection map[string]map[string]interface{}) {
	switch r.Method {
	case http.MethodGet, http.MethodHead:
		ids := make([]string, 0, len(collection))
		for id := range collection {
			ids = append(ids, id)
		}
		sort.Slice(ids, func(i, j int) bool {
			a, _ := strconv.Atoi(ids[i])
			b, _ := strconv.Atoi(ids[j])
			return a < b
		})
		list := make([]map[string]interface{}, 0, len(ids))
		for _, id := range ids {
			list = append(list, collection[id])
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{kind: list})
	case http.MethodPost:
		body, err := decodeBody(r)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]interface{}{"errorMessages": []string{err.Error()}})
			return
		}
		if s.CreateStatus != nil {
			if status := s.CreateStatus(kind, s.calls["POST /"+kind]); status != 0 {
				writeJSON(w, status, map[string]interface{}{"errorMessages": []string{"forced failure"}})
				return
			}
		}
		writeJSON(w, http.StatusCreated, s.store(kind, body))
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (s *Server) serveItem(w http.ResponseWriter, r *http.Request, kind, id string, collection map[string]map[string]interface{}) {
	item, ok := collection[id]
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]interface{}{"errorMessages": []string{"Could not find any instances with " + kind + "/" + id}})
		return
	}

	switch r.Method {
	case http.MethodGet, http.MethodHead:
		writeJSON(w, http.StatusOK, map[string]interface{}{kind: []interface{}{item}})
	case http.MethodPut, http.MethodPost:
		body, err := decodeBody(r)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]interface{}{"errorMessages": []string{err.Error()}})
			return
		}
		for k, v := range body {
			item[k] = v
		}
		item["id"] = id
		writeJSON(w, http.StatusOK, item)
	case http.MethodDelete:
		delete(collection, id)
		w.WriteHeader(http.StatusOK)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (s *Server) serveRelation(w http.ResponseWriter, r *http.Request, kind string, parts []string, collection map[string]map[string]interface{}) {
	id, relation := parts[1], parts[2]
	if _, ok := collection[id]; !ok {
		writeJSON(w, http.StatusNotFound, map[string]interface{}{"errorMessages": []string{"Could not find parent thing for relationship " + kind + "/" + id + "/" + relation}})
		return
	}
	target, ok := s.items[relation]
	if !ok {
		http.NotFound(w, r)
		return
	}
	relKey := kind + "/" + id + "/" + relation
	linked := s.relations[relKey]
	if linked == nil {
		linked = make(map[string]bool)
		s.relations[relKey] = linked
	}

	switch {
	case len(parts) == 3 && r.Method == http.MethodGet:
		list := make([]map[string]interface{}, 0, len(linked))
		for tid := range linked {
			if item, ok := target[tid]; ok {
				list = append(list, item)
			}
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{relation: list})
	case len(parts) == 3 && r.Method == http.MethodPost:
		body, err := decodeBody(r)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]interface{}{"errorMessages": []string{err.Error()}})
			return
		}
		tid, _ := body["id"].(string)
		if _, ok := target[tid]; !ok {
			writeJSON(w, http.StatusNotFound, map[string]interface{}{"errorMessages": []string{"Could not find thing matching value for id"}})
			return
		}
		linked[tid] = true
		w.WriteHeader(http.StatusCreated)
	case len(parts) == 4 && r.Method == http.MethodDelete:
		if !linked[parts[3]] {
			writeJSON(w, http.StatusNotFound, map[string]interface{}{"errorMessages": []string{"Could not find relationship"}})
			return
		}
		delete(linked, parts[3])
		w.WriteHeader(http.StatusOK)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// decodeBody accepts a flat JSON object or a flat XML element.
func decodeBody(r *http.Request) (map[string]interface{}, error) {
	data, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, err
	}
	if strings.Contains(r.Header.Get("Content-Type"), "xml") {
		return decodeXML(data)
	}
	body := make(map[string]interface{})
	if len(data) == 0 {
		return body, nil
	}
	if err := json.Unmarshal(data, &body); err != nil {
		return nil, err
	}
	return body, nil
}

func decodeXML(data []byte) (map[string]interface{}, error) {
	var doc struct {
		Fields []struct {
			XMLName xml.Name
			Value   string `xml:",chardata"`
		} `xml:",any"`
	}
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	body := make(map[string]interface{}, len(doc.Fields))
	for _, f := range doc.Fields {
		body[f.XMLName.Local] = f.Value
	}
	return body, nil
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
