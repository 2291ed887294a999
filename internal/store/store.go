// Package store holds the authoritative in-memory entity collections for one
// client session and the mutation operations that keep them consistent. All
// reads are derived from the canonical collections, so a write is visible to
// the very next read. The session is single-writer: operations run to
// completion before the next one starts, which makes every mutation atomic
// without locking.
package store

import (
	"strconv"
	"strings"
	"time"

	"sprintdeck/internal/domain"
)

// DefaultKeyPrefix is the human-facing task key prefix (PROJ-101, PROJ-102, ...).
const DefaultKeyPrefix = "PROJ"

// keySeed is the suffix the first task key counts up from.
const keySeed = 100

// Store is one session's entity state: collections plus the session-scoped
// selection state (current sprint, open task, acting user). Construct with
// New and seed with Load or the Replace operations; never share across
// goroutines.
type Store struct {
	Tasks   []domain.Task
	Users   []domain.User
	Sprints []domain.Sprint

	// CurrentSprintID selects the sprint every board/list projection is
	// filtered to. CurrentSprint falls back to the first known sprint when
	// the id is dangling.
	CurrentSprintID string
	// OpenTaskID is the currently open task, if any. The task itself is
	// always derived from Tasks via OpenTask, never cached separately.
	OpenTaskID string
	// ActorID is the acting user; defaults to the first roster entry on Load.
	ActorID string

	KeyPrefix string
	Now       func() time.Time

	// nextKey is the monotonic task-key counter. It only ever moves forward,
	// so keys stay unique and strictly increasing even if tasks are removed
	// from the collection mid-session.
	nextKey int
}

// New returns an empty session store.
func New() *Store {
	return &Store{
		KeyPrefix: DefaultKeyPrefix,
		Now:       time.Now,
		nextKey:   keySeed,
	}
}

// Load seeds all collections at once, typically after an initial fetch, and
// resolves the session defaults: acting user and current sprint.
func (s *Store) Load(users []domain.User, sprints []domain.Sprint, tasks []domain.Task) {
	s.ReplaceUsers(users)
	s.ReplaceSprints(sprints)
	s.ReplaceTasks(tasks)
	if s.ActorID == "" && len(s.Users) > 0 {
		s.ActorID = s.Users[0].ID
	}
	if s.CurrentSprintID == "" && len(s.Sprints) > 0 {
		s.CurrentSprintID = s.Sprints[0].ID
	}
}

// ReplaceTasks swaps the task collection wholesale and advances the key
// counter past every key already in use.
func (s *Store) ReplaceTasks(tasks []domain.Task) {
	s.Tasks = tasks
	s.bumpKeyCounter()
}

// ReplaceUsers swaps the user collection wholesale.
func (s *Store) ReplaceUsers(users []domain.User) {
	s.Users = users
}

// ReplaceSprints swaps the sprint reference data wholesale.
func (s *Store) ReplaceSprints(sprints []domain.Sprint) {
	s.Sprints = sprints
}

func (s *Store) bumpKeyCounter() {
	if s.nextKey < keySeed+len(s.Tasks) {
		s.nextKey = keySeed + len(s.Tasks)
	}
	for _, t := range s.Tasks {
		if n, ok := s.keyNum(t.Key); ok && n > s.nextKey {
			s.nextKey = n
		}
	}
}

// keyNum extracts the numeric suffix of a task key like PROJ-104.
func (s *Store) keyNum(key string) (int, bool) {
	rest, ok := strings.CutPrefix(key, s.KeyPrefix+"-")
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(rest)
	if err != nil {
		return 0, false
	}
	return n, true
}

// nextTaskKey hands out the next key. The counter never rewinds; when a
// remote create responds with a higher authoritative key, AdoptKey moves the
// counter forward to match.
func (s *Store) nextTaskKey() string {
	s.nextKey++
	return s.KeyPrefix + "-" + strconv.Itoa(s.nextKey)
}

// AdoptKey replaces a task's locally generated key with the authoritative one
// returned by the persistence service, keeping the counter ahead of it.
func (s *Store) AdoptKey(taskID, key string) {
	for i := range s.Tasks {
		if s.Tasks[i].ID == taskID {
			s.Tasks[i].Key = key
			break
		}
	}
	if n, ok := s.keyNum(key); ok && n > s.nextKey {
		s.nextKey = n
	}
}

func (s *Store) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *Store) stamp() string {
	return s.now().Format(domain.TimestampFormat)
}

func (s *Store) taskIndex(id string) int {
	for i := range s.Tasks {
		if s.Tasks[i].ID == id {
			return i
		}
	}
	return -1
}
