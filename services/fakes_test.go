package services

import (
	"bytes"
	"context"
	"io"
	"sort"
	"sync"
	"testing/fstest"

	"github.com/Dosada05/league-registration/definitions"
	"github.com/Dosada05/league-registration/models"
	"github.com/Dosada05/league-registration/repositories"
	"github.com/Dosada05/league-registration/storage"
)

type memJobRepo struct {
	mu      sync.Mutex
	jobs    map[int]models.Job
	failOn  map[int]error
	updates int
}

func newMemJobRepo(jobs ...models.Job) *memJobRepo {
	r := &memJobRepo{jobs: map[int]models.Job{}, failOn: map[int]error{}}
	for _, j := range jobs {
		r.jobs[j.ID] = j
	}
	return r
}

func (r *memJobRepo) sorted() []models.Job {
	out := make([]models.Job, 0, len(r.jobs))
	for _, j := range r.jobs {
		out = append(out, j)
	}
	sort.Slice(out, func(a, b int) bool { return out[a].ID < out[b].ID })
	return out
}

func (r *memJobRepo) GetByID(_ context.Context, id int) (*models.Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	j, ok := r.jobs[id]
	if !ok {
		return nil, repositories.ErrJobNotFound
	}
	return &j, nil
}

func (r *memJobRepo) ListAll(_ context.Context) ([]models.Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.sorted()
	for i := range out {
		out[i].HasMetadata = out[i].Metadata() != ""
		out[i].MetadataJSON = nil
		out[i].OptionsJSON = nil
	}
	return out, nil
}

func (r *memJobRepo) ListByProfileType(_ context.Context, pt models.ProfileType) ([]models.Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Job
	for _, j := range r.sorted() {
		if j.Profile().ProfileType == pt {
			out = append(out, j)
		}
	}
	return out, nil
}

func (r *memJobRepo) UpdateMetadata(_ context.Context, id int, metadataJSON string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.failOn[id]; err != nil {
		return err
	}
	j, ok := r.jobs[id]
	if !ok {
		return repositories.ErrJobNotFound
	}
	j.MetadataJSON = &metadataJSON
	r.jobs[id] = j
	r.updates++
	return nil
}

func (r *memJobRepo) metadata(id int) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.jobs[id].Metadata()
}

func (r *memJobRepo) updateCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.updates
}

func strPtr(s string) *string { return &s }

func job(id int, name, profile, options string) models.Job {
	j := models.Job{ID: id, Name: name, ProfileEncoding: profile}
	if options != "" {
		j.OptionsJSON = strPtr(options)
	}
	return j
}

type recordedEvent struct {
	room, eventType string
	payload         any
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (p *recordingPublisher) Publish(room, eventType string, payload any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, recordedEvent{room: room, eventType: eventType, payload: payload})
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.eventType)
	}
	return out
}

type memStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	types   map[string]string
	err     error
}

func newMemStore() *memStore {
	return &memStore{objects: map[string][]byte{}, types: map[string]string{}}
}

func (s *memStore) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.objects[key]
	if !ok {
		return nil, storage.ErrObjectNotFound
	}
	return data, nil
}

func (s *memStore) List(_ context.Context, prefix string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var keys []string
	for k := range s.objects {
		if len(k) >= len(prefix) && k[:len(prefix)] == prefix {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

func (s *memStore) Upload(_ context.Context, key string, contentType string, reader io.Reader) (*storage.UploadResult, error) {
	if s.err != nil {
		return nil, s.err
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, reader); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = buf.Bytes()
	s.types[key] = contentType
	return &storage.UploadResult{Key: key, Location: "mem://" + key}, nil
}

func (s *memStore) GetPublicURL(key string) string {
	return "https://cdn.example.test/" + key
}

const (
	testBaseYAML = `
fields:
  - name: firstName
    displayName: First Name
    visibility: public
    validation: {required: true}
  - name: lastName
    displayName: Last Name
    visibility: public
`
	testPP10YAML = `
fields:
  - name: gradYear
    displayName: Graduation Year
    inputType: SELECT
    dataSource: gradYears
    visibility: public
  - name: internalNotes
    visibility: hidden
  - name: jerseySize
    displayName: Jersey Size
    inputType: SELECT
    dataSource: ListSizes_Jersey
    visibility: public
  - name: coachRating
    inputType: NUMBER
    visibility: adminOnly
`
	testCAC04YAML = `
inheritBase: false
fields:
  - name: clubName
    displayName: Club
    visibility: public
`
	testBrokenYAML = "fields: [unterminated"
)

func testDefinitions() fstest.MapFS {
	return fstest.MapFS{
		"profiles/base.yaml":        {Data: []byte(testBaseYAML)},
		"profiles/player/PP10.yaml": {Data: []byte(testPP10YAML)},
		"profiles/player/PP11.yaml": {Data: []byte(testBrokenYAML)},
		"profiles/player/PP20.yaml": {Data: []byte(testPP10YAML)},
		"profiles/club/CAC04.yaml":  {Data: []byte(testCAC04YAML)},
	}
}

func testFetcher() *definitions.Fetcher {
	return definitions.NewFetcher(definitions.NewFSSource(testDefinitions()), definitions.FetcherConfig{}, nil)
}
