package preview

import (
	"strings"
	"sync"
	"time"
)

const (
	SlotModel   = "model"
	SlotProduct = "product"
)

// BackgroundPageSize is how many backgrounds one keyboard page shows.
const BackgroundPageSize = 8

// UIState is the per-chat wizard state of the Telegram front end.
type UIState struct {
	ModelFileID   string
	ProductFileID string

	Background  string
	AspectRatio AspectRatio

	Awaiting       string // "" | "model" | "product"
	Menu           string // "main" | "background" | "ratio"
	BackgroundPage int

	MessageID  int
	Generating bool

	UpdatedAt time.Time
}

func (s UIState) Ready() bool {
	return strings.TrimSpace(s.ModelFileID) != "" && strings.TrimSpace(s.ProductFileID) != ""
}

// AcceptPhoto stores fileID in the awaited slot and moves on to the next empty one.
// It returns the slot that was filled.
func (s *UIState) AcceptPhoto(fileID string) string {
	slot := s.Awaiting
	if slot == "" {
		switch {
		case s.ModelFileID == "":
			slot = SlotModel
		case s.ProductFileID == "":
			slot = SlotProduct
		default:
			// both set: a fresh photo replaces the product
			slot = SlotProduct
		}
	}

	if slot == SlotModel {
		s.ModelFileID = fileID
	} else {
		s.ProductFileID = fileID
	}

	switch {
	case s.ModelFileID == "":
		s.Awaiting = SlotModel
	case s.ProductFileID == "":
		s.Awaiting = SlotProduct
	default:
		s.Awaiting = ""
	}
	return slot
}

func (s *UIState) SetBackgroundPage(page int) {
	last := (len(backgrounds) - 1) / BackgroundPageSize
	if page < 0 {
		page = 0
	}
	if page > last {
		page = last
	}
	s.BackgroundPage = page
}

func (s UIState) PromptOptions() Options {
	opts := DefaultOptions()
	if _, ok := BackgroundByKey(s.Background); ok {
		opts.Background = s.Background
	}
	if s.AspectRatio != "" {
		opts.AspectRatio = s.AspectRatio
	}
	return opts
}

type Store struct {
	mu sync.Mutex
	m  map[stateKey]*UIState
}

type stateKey struct {
	ChatID int64
	UserID int64
}

func NewStore() *Store {
	return &Store{m: make(map[stateKey]*UIState)}
}

func (s *Store) Get(chatID, userID int64) UIState {
	s.mu.Lock()
	defer s.mu.Unlock()

	return *s.getOrCreateLocked(chatID, userID)
}

func (s *Store) Update(chatID, userID int64, fn func(*UIState)) UIState {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.getOrCreateLocked(chatID, userID)
	if fn != nil {
		fn(st)
	}
	st.UpdatedAt = time.Now()
	return *st
}

func (s *Store) Reset(chatID, userID int64) UIState {
	return s.Update(chatID, userID, func(st *UIState) {
		msgID := st.MessageID
		*st = defaultState()
		st.MessageID = msgID
	})
}

// BeginGeneration marks the chat as busy. It reports false when a batch is
// already running or the photos are missing.
func (s *Store) BeginGeneration(chatID, userID int64) (UIState, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.getOrCreateLocked(chatID, userID)
	if st.Generating || !st.Ready() {
		return *st, false
	}
	st.Generating = true
	st.UpdatedAt = time.Now()
	return *st, true
}

func (s *Store) EndGeneration(chatID, userID int64) {
	s.Update(chatID, userID, func(st *UIState) { st.Generating = false })
}

func (s *Store) getOrCreateLocked(chatID, userID int64) *UIState {
	key := stateKey{ChatID: chatID, UserID: userID}
	if st, ok := s.m[key]; ok {
		return st
	}
	st := defaultState()
	s.m[key] = &st
	return s.m[key]
}

func defaultState() UIState {
	opts := DefaultOptions()
	return UIState{
		Background:  opts.Background,
		AspectRatio: opts.AspectRatio,
		Awaiting:    SlotModel,
		Menu:        "main",
		UpdatedAt:   time.Now(),
	}
}
