package testsupport

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// Shape selects how a collection reports its total.
type Shape int

const (
	// ShapeCount sends {results, count}.
	ShapeCount Shape = iota
	// ShapeTotal sends {results, total, pages}.
	ShapeTotal
	// ShapeTotalPages sends {results, page, limit, totalPages}.
	ShapeTotalPages
	// ShapePages sends {results, pages}.
	ShapePages
)

// Request is one request seen by the fake server.
type Request struct {
	Method    string
	Path      string
	Query     string
	RequestID string
	Body      []byte
}

type collection struct {
	shape       Shape
	searchField string
	records     []Record
}

type mutationRoute struct {
	target string
	status int
	msg    string
}

type failure struct {
	status int
	msg    string
}

// ClinicServer is an in-memory stand-in for the clinic services. Collections
// page and filter like the real services; mutation routes append to or
// update a collection.
type ClinicServer struct {
	*httptest.Server

	mu          sync.Mutex
	collections map[string]*collection
	mutations   map[string]*mutationRoute
	lookups     map[string]string
	failures    map[string][]failure
	gates       map[string]chan struct{}
	requests    []Request
}

// NewClinicServer starts a server with no collections. Close it when done.
func NewClinicServer() *ClinicServer {
	s := &ClinicServer{
		collections: make(map[string]*collection),
		mutations:   make(map[string]*mutationRoute),
		lookups:     make(map[string]string),
		failures:    make(map[string][]failure),
		gates:       make(map[string]chan struct{}),
	}
	s.Server = httptest.NewServer(http.HandlerFunc(s.handle))
	return s
}

// AddCollection serves records at path in the given shape. Search matches a
// case-insensitive substring of searchField.
func (s *ClinicServer) AddCollection(path string, shape Shape, searchField string, records ...Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.collections[normalize(path)] = &collection{shape: shape, searchField: searchField, records: records}
}

// AddMutation serves POST and PUT/PATCH at path. On success a POST appends
// the payload to target with a fresh _id and a PUT/PATCH replaces the record
// with the same _id. A status other than 200 or 201 answers every call with
// that status in the envelope and changes nothing.
func (s *ClinicServer) AddMutation(path, target string, status int, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mutations[normalize(path)] = &mutationRoute{target: normalize(target), status: status, msg: message}
}

// AddLookup serves GET path/{id} with the record of target whose _id is id,
// wrapped in the mutation envelope. An unknown id is reported in the
// envelope with status 404.
func (s *ClinicServer) AddLookup(path, target string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lookups[normalize(path)] = normalize(target)
}

// FailNext makes the next request to path fail with status and message.
func (s *ClinicServer) FailNext(path string, status int, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := normalize(path)
	s.failures[p] = append(s.failures[p], failure{status: status, msg: message})
}

// Hold blocks requests to path until the returned release function is called.
func (s *ClinicServer) Hold(path string) (release func()) {
	ch := make(chan struct{})
	s.mu.Lock()
	s.gates[normalize(path)] = ch
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.gates, normalize(path))
			s.mu.Unlock()
			close(ch)
		})
	}
}

// Requests returns every request seen so far.
func (s *ClinicServer) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Request(nil), s.requests...)
}

// RequestsFor returns the requests seen for path.
func (s *ClinicServer) RequestsFor(path string) []Request {
	p := "/" + normalize(path)
	var out []Request
	for _, r := range s.Requests() {
		if r.Path == p {
			out = append(out, r)
		}
	}
	return out
}

// Len returns the number of records held at path.
func (s *ClinicServer) Len(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.collections[normalize(path)]; ok {
		return len(c.records)
	}
	return 0
}

func (s *ClinicServer) handle(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	path := normalize(r.URL.Path)

	s.mu.Lock()
	s.requests = append(s.requests, Request{
		Method:    r.Method,
		Path:      r.URL.Path,
		Query:     r.URL.RawQuery,
		RequestID: r.Header.Get("X-Request-ID"),
		Body:      body,
	})
	gate := s.gates[path]
	var fail *failure
	if queued := s.failures[path]; len(queued) > 0 {
		f := queued[0]
		fail = &f
		s.failures[path] = queued[1:]
	}
	s.mu.Unlock()

	if gate != nil {
		<-gate
	}
	if fail != nil {
		writeJSON(w, fail.status, map[string]any{"statusCode": fail.status, "message": fail.msg})
		return
	}

	switch r.Method {
	case http.MethodGet:
		if s.lookup(w, path) {
			return
		}
		s.list(w, r, path)
	case http.MethodPost, http.MethodPut, http.MethodPatch:
		s.mutate(w, r.Method, path, body)
	default:
		writeJSON(w, http.StatusMethodNotAllowed, map[string]any{"message": "method not allowed"})
	}
}

func (s *ClinicServer) list(w http.ResponseWriter, r *http.Request, path string) {
	s.mu.Lock()
	c, ok := s.collections[path]
	if !ok {
		s.mu.Unlock()
		writeJSON(w, http.StatusNotFound, map[string]any{"message": "not found"})
		return
	}
	q := r.URL.Query()
	search := strings.ToLower(strings.TrimSpace(q.Get("search")))
	var matched []Record
	for _, rec := range c.records {
		if search == "" {
			matched = append(matched, rec)
			continue
		}
		if v, ok := rec[c.searchField].(string); ok && strings.Contains(strings.ToLower(v), search) {
			matched = append(matched, rec)
		}
	}
	shape := c.shape
	s.mu.Unlock()

	page := atoiOr(q.Get("page"), 1)
	limit := atoiOr(q.Get("limit"), 10)
	from := (page - 1) * limit
	results := []Record{}
	if from < len(matched) {
		to := min(from+limit, len(matched))
		results = matched[from:to]
	}
	total := len(matched)
	pages := (total + limit - 1) / limit

	resp := map[string]any{"results": results}
	switch shape {
	case ShapeCount:
		resp["count"] = total
	case ShapeTotal:
		resp["total"] = total
		resp["pages"] = pages
	case ShapeTotalPages:
		resp["page"] = page
		resp["limit"] = limit
		resp["totalPages"] = pages
	case ShapePages:
		resp["pages"] = pages
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *ClinicServer) lookup(w http.ResponseWriter, path string) bool {
	i := strings.LastIndex(path, "/")
	if i < 0 {
		return false
	}
	prefix, id := path[:i], path[i+1:]

	s.mu.Lock()
	defer s.mu.Unlock()
	target, ok := s.lookups[prefix]
	if !ok {
		return false
	}
	if c := s.collections[target]; c != nil {
		for _, rec := range c.records {
			if rec["_id"] == id {
				writeJSON(w, http.StatusOK, map[string]any{"statusCode": http.StatusOK, "message": "ok", "data": rec})
				return true
			}
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"statusCode": http.StatusNotFound, "message": "Record not found"})
	return true
}

func (s *ClinicServer) mutate(w http.ResponseWriter, method, path string, body []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()

	route, ok := s.mutations[path]
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]any{"message": "not found"})
		return
	}
	if route.status != http.StatusOK && route.status != http.StatusCreated {
		// the services report some failures inside a 200 envelope
		writeJSON(w, http.StatusOK, map[string]any{"statusCode": route.status, "message": route.msg})
		return
	}

	var rec Record
	if err := json.Unmarshal(body, &rec); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"message": "invalid payload"})
		return
	}

	target := s.collections[route.target]
	if method == http.MethodPost {
		rec["_id"] = uuid.NewString()
		if target != nil {
			target.records = append(target.records, rec)
		}
	} else if target != nil {
		for i, existing := range target.records {
			if existing["_id"] == rec["_id"] {
				merged := Record{}
				for k, v := range existing {
					merged[k] = v
				}
				for k, v := range rec {
					merged[k] = v
				}
				target.records[i] = merged
				rec = merged
				break
			}
		}
	}
	writeJSON(w, route.status, map[string]any{"statusCode": route.status, "message": route.msg, "data": rec})
}

func normalize(path string) string {
	return strings.Trim(path, "/")
}

func atoiOr(s string, def int) int {
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return def
	}
	return n
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
