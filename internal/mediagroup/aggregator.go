// Package mediagroup collects the photos of a Telegram album, which arrive as
// separate updates, into one group once the album has gone quiet.
package mediagroup

import (
	"fmt"
	"sort"
	"sync"
	"time"
)

type Item struct {
	ChatID       int64
	UserID       int64
	MessageID    int
	MediaGroupID string
	Caption      string
	FileID       string
}

// Group is a finished album. FileIDs are in message order, so for a promo
// album the first one is the model photo and the second the product.
type Group struct {
	ChatID  int64
	UserID  int64
	Caption string
	FileIDs []string
}

type Options struct {
	Debounce time.Duration
	OnFlush  func(Group)
}

type Aggregator struct {
	mu       sync.Mutex
	debounce time.Duration
	onFlush  func(Group)
	groups   map[string]*pendingGroup
	stopped  bool
}

type pendingGroup struct {
	chatID  int64
	userID  int64
	caption string
	items   []orderedFile
	timer   *time.Timer

	// gen changes on every Add; a timer that fired before the latest Add is stale.
	gen uint64
}

type orderedFile struct {
	messageID int
	fileID    string
}

func New(opts Options) *Aggregator {
	debounce := opts.Debounce
	if debounce <= 0 {
		debounce = 1200 * time.Millisecond
	}

	return &Aggregator{
		debounce: debounce,
		onFlush:  opts.OnFlush,
		groups:   make(map[string]*pendingGroup),
	}
}

func (a *Aggregator) Add(item Item) {
	if item.MediaGroupID == "" || item.FileID == "" {
		return
	}

	key := makeKey(item.ChatID, item.MediaGroupID)

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.stopped {
		return
	}

	pg, ok := a.groups[key]
	if !ok {
		pg = &pendingGroup{chatID: item.ChatID, userID: item.UserID}
		a.groups[key] = pg
	}
	pg.items = append(pg.items, orderedFile{messageID: item.MessageID, fileID: item.FileID})
	if item.Caption != "" {
		pg.caption = item.Caption
	}

	if pg.timer != nil {
		pg.timer.Stop()
	}
	pg.gen++
	gen := pg.gen
	pg.timer = time.AfterFunc(a.debounce, func() {
		a.flush(key, gen)
	})
}

// Pending reports how many albums are still collecting photos.
func (a *Aggregator) Pending() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.groups)
}

// Stop drops pending albums without flushing them. Later Adds are ignored.
func (a *Aggregator) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.stopped = true
	for key, pg := range a.groups {
		if pg.timer != nil {
			pg.timer.Stop()
		}
		delete(a.groups, key)
	}
}

func (a *Aggregator) flush(key string, gen uint64) {
	a.mu.Lock()
	pg, ok := a.groups[key]
	if !ok || pg.gen != gen {
		a.mu.Unlock()
		return
	}
	delete(a.groups, key)
	onFlush := a.onFlush
	a.mu.Unlock()

	sort.SliceStable(pg.items, func(i, j int) bool { return pg.items[i].messageID < pg.items[j].messageID })

	group := Group{
		ChatID:  pg.chatID,
		UserID:  pg.userID,
		Caption: pg.caption,
		FileIDs: make([]string, 0, len(pg.items)),
	}
	for _, it := range pg.items {
		group.FileIDs = append(group.FileIDs, it.fileID)
	}

	if onFlush != nil {
		onFlush(group)
	}
}

func makeKey(chatID int64, mediaGroupID string) string {
	return fmt.Sprintf("%d:%s", chatID, mediaGroupID)
}
