// Package contentstore is an in-memory implementation of the remote skill
// content store. It serves the same HTTP endpoints the gateway client
// talks to and is used for local development and integration tests.
package contentstore

import (
	"bytes"
	"encoding/json"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rogpeppe/go-internal/lockedfile"

	"github.com/jingkaihe/skillcms/pkg/directive"
)

// Errors returned by store operations. Their messages are sent to clients verbatim.
var (
	ErrUnauthorized   = errors.New("Access token is not valid")
	ErrSkillExists    = errors.New("Skill already exists")
	ErrSkillNotFound  = errors.New("Skill does not exist")
	ErrCommitNotFound = errors.New("Commit does not exist")
	ErrInvalidRequest = errors.New("Bad request")
)

// Key addresses a skill in the store
type Key struct {
	Model    string `json:"model"`
	Group    string `json:"group"`
	Language string `json:"language"`
	Skill    string `json:"skill"`
}

func (k Key) valid() bool {
	return k.Model != "" && k.Group != "" && k.Language != "" && k.Skill != ""
}

func (k Key) id() string {
	return strings.Join([]string{k.Model, k.Group, k.Language, k.Skill}, "/")
}

// CommitRecord is one stored revision
type CommitRecord struct {
	ID      string    `json:"id"`
	Author  string    `json:"author"`
	Date    time.Time `json:"date"`
	Message string    `json:"message"`
	Content string    `json:"content"`
}

// SkillRecord holds a skill's metadata and commits, newest first
type SkillRecord struct {
	Key       Key            `json:"key"`
	ImageName string         `json:"imageName"`
	Private   bool           `json:"private"`
	Commits   []CommitRecord `json:"commits"`
}

// CreateRequest is a decoded createSkill call
type CreateRequest struct {
	Key       Key
	Content   string
	ImageName string
	Image     []byte
	Private   bool
	Token     string
}

// ModifyRequest is a decoded modifySkill call
type ModifyRequest struct {
	Old          Key
	New          Key
	OldImageName string
	NewImageName string
	Content      string
	Changelog    string
	ImageChanged bool
	Image        []byte
	Token        string
}

// Store keeps skills in memory and optionally mirrors them to a snapshot file
type Store struct {
	mu       sync.RWMutex
	skills   map[string]*SkillRecord
	images   map[string][]byte
	tokens   map[string]string
	snapshot string
	now      func() time.Time
}

// Option configures a Store
type Option func(*Store)

// WithTokens restricts writes to the given access tokens, mapped to author names.
// Without it any non-empty token is accepted.
func WithTokens(tokens map[string]string) Option {
	return func(s *Store) {
		s.tokens = tokens
	}
}

// WithSnapshot persists the store to path after every write and loads it on start
func WithSnapshot(path string) Option {
	return func(s *Store) {
		s.snapshot = path
	}
}

// WithClock overrides the commit timestamp source
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// New creates a Store
func New(opts ...Option) (*Store, error) {
	s := &Store{
		skills: make(map[string]*SkillRecord),
		images: make(map[string][]byte),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.snapshot != "" {
		if err := s.load(); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (s *Store) author(token, content string) (string, error) {
	if token == "" {
		return "", ErrUnauthorized
	}
	name := "anonymous"
	if len(s.tokens) > 0 {
		n, ok := s.tokens[token]
		if !ok {
			return "", ErrUnauthorized
		}
		name = n
	}
	if email, err := directive.Extract(content, directive.KeyAuthorEmail); err == nil && email != "" {
		name = email
	}
	return name, nil
}

func newCommitID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// Create adds a new skill with a single commit
func (s *Store) Create(req CreateRequest) (CommitRecord, error) {
	if !req.Key.valid() {
		return CommitRecord{}, ErrInvalidRequest
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	author, err := s.author(req.Token, req.Content)
	if err != nil {
		return CommitRecord{}, err
	}
	if _, exists := s.skills[req.Key.id()]; exists {
		return CommitRecord{}, ErrSkillExists
	}

	commit := CommitRecord{
		ID:      newCommitID(),
		Author:  author,
		Date:    s.now().UTC(),
		Message: "Created skill " + req.Key.Skill,
		Content: req.Content,
	}
	s.skills[req.Key.id()] = &SkillRecord{
		Key:       req.Key,
		ImageName: req.ImageName,
		Private:   req.Private,
		Commits:   []CommitRecord{commit},
	}
	if len(req.Image) > 0 {
		s.images[req.Key.id()] = req.Image
	}

	return commit, s.persistLocked()
}

// Modify appends a commit to an existing skill, moving it when the key changes
func (s *Store) Modify(req ModifyRequest) (CommitRecord, error) {
	if !req.Old.valid() || !req.New.valid() {
		return CommitRecord{}, ErrInvalidRequest
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	author, err := s.author(req.Token, req.Content)
	if err != nil {
		return CommitRecord{}, err
	}

	rec, ok := s.skills[req.Old.id()]
	if !ok {
		return CommitRecord{}, ErrSkillNotFound
	}
	renamed := req.Old.id() != req.New.id()
	if renamed {
		if _, exists := s.skills[req.New.id()]; exists {
			return CommitRecord{}, ErrSkillExists
		}
	}

	commit := CommitRecord{
		ID:      newCommitID(),
		Author:  author,
		Date:    s.now().UTC(),
		Message: req.Changelog,
		Content: req.Content,
	}
	rec.Commits = append([]CommitRecord{commit}, rec.Commits...)
	if req.NewImageName != "" {
		rec.ImageName = req.NewImageName
	}

	if renamed {
		delete(s.skills, req.Old.id())
		rec.Key = req.New
		s.skills[req.New.id()] = rec
		if img, ok := s.images[req.Old.id()]; ok {
			delete(s.images, req.Old.id())
			s.images[req.New.id()] = img
		}
	}
	if req.ImageChanged && len(req.Image) > 0 {
		s.images[req.New.id()] = req.Image
	}

	return commit, s.persistLocked()
}

// History returns the commits of a skill, newest first. Unknown skills have no history.
func (s *Store) History(key Key) []CommitRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.skills[key.id()]
	if !ok {
		return []CommitRecord{}
	}
	out := make([]CommitRecord, len(rec.Commits))
	copy(out, rec.Commits)
	return out
}

// ContentAt returns one commit of a skill
func (s *Store) ContentAt(key Key, commitID string) (CommitRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.skills[key.id()]
	if !ok {
		return CommitRecord{}, ErrSkillNotFound
	}
	for _, c := range rec.Commits {
		if c.ID == commitID {
			return c, nil
		}
	}
	return CommitRecord{}, ErrCommitNotFound
}

// Skill returns a copy of the stored record
func (s *Store) Skill(key Key) (SkillRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.skills[key.id()]
	if !ok {
		return SkillRecord{}, false
	}
	out := *rec
	out.Commits = append([]CommitRecord(nil), rec.Commits...)
	return out, true
}

// Image returns the uploaded binary for a skill, if any
func (s *Store) Image(key Key) ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	img, ok := s.images[key.id()]
	return img, ok
}

type snapshotFile struct {
	Skills []*SkillRecord `json:"skills"`
}

func (s *Store) persistLocked() error {
	if s.snapshot == "" {
		return nil
	}

	snap := snapshotFile{Skills: make([]*SkillRecord, 0, len(s.skills))}
	for _, rec := range s.skills {
		snap.Skills = append(snap.Skills, rec)
	}
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return errors.Wrap(err, "failed to marshal snapshot")
	}
	if err := lockedfile.Write(s.snapshot, bytes.NewReader(data), 0o644); err != nil {
		return errors.Wrap(err, "failed to write snapshot")
	}
	return nil
}

func (s *Store) load() error {
	data, err := lockedfile.Read(s.snapshot)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return errors.Wrap(err, "failed to read snapshot")
	}
	if len(data) == 0 {
		return nil
	}

	var snap snapshotFile
	if err := json.Unmarshal(data, &snap); err != nil {
		return errors.Wrap(err, "failed to parse snapshot")
	}
	for _, rec := range snap.Skills {
		s.skills[rec.Key.id()] = rec
	}
	return nil
}
