// Package jsondb keeps users and short links in memory and mirrors them to a JSON file.
package jsondb

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"sync"

	"github.com/patric-chuzhbe/adshrt/internal/models"
	"github.com/patric-chuzhbe/adshrt/internal/user"
)

// JSONDB is a file-backed storage. An empty fileName keeps everything in memory only.
type JSONDB struct {
	mu       sync.RWMutex
	fileName string
	Cache    CacheStruct
}

// CacheStruct is the on-disk document.
type CacheStruct struct {
	Users        map[int64]*user.User         `json:"users"`
	UsernameToID map[string]int64             `json:"username_to_id"`
	Links        map[string]*models.ShortLink `json:"links"`
	NextUserID   int64                        `json:"next_user_id"`
	NextLinkID   int64                        `json:"next_link_id"`
}

// NewCache returns an empty document with IDs starting at 1.
func NewCache() CacheStruct {
	return CacheStruct{
		Users:        map[int64]*user.User{},
		UsernameToID: map[string]int64{},
		Links:        map[string]*models.ShortLink{},
		NextUserID:   1,
		NextLinkID:   1,
	}
}

// New loads fileName, creating it when it does not exist yet.
func New(fileName string) (*JSONDB, error) {
	db := &JSONDB{
		fileName: fileName,
		Cache:    NewCache(),
	}

	err := parseJSONFile(fileName, &db.Cache)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, err
		}
		if err := writeToJSONFile(fileName, db.Cache); err != nil {
			return nil, err
		}
	}

	return db, nil
}

func writeToJSONFile(fileName string, cache interface{}) error {
	jsonData, err := json.MarshalIndent(cache, "", "\t")
	if err != nil {
		return fmt.Errorf("error marshaling JSON: %w", err)
	}

	if err := os.WriteFile(fileName, jsonData, 0644); err != nil {
		return fmt.Errorf("error writing to file: %w", err)
	}

	return nil
}

func parseJSONFile(fileName string, cache *CacheStruct) error {
	file, err := os.Open(fileName)
	if err != nil {
		return err
	}
	defer file.Close()

	if err := json.NewDecoder(file).Decode(cache); err != nil {
		return fmt.Errorf("error decoding %s: %w", fileName, err)
	}

	if cache.Users == nil || cache.UsernameToID == nil || cache.Links == nil {
		empty := NewCache()
		if cache.Users == nil {
			cache.Users = empty.Users
		}
		if cache.UsernameToID == nil {
			cache.UsernameToID = empty.UsernameToID
		}
		if cache.Links == nil {
			cache.Links = empty.Links
		}
	}

	return nil
}

// flush must be called with mu held. Callers undo their change when it fails,
// so memory never runs ahead of the file.
func (db *JSONDB) flush() error {
	if db.fileName == "" {
		return nil
	}

	return writeToJSONFile(db.fileName, db.Cache)
}

func (db *JSONDB) CreateUser(ctx context.Context, usr *user.User) (int64, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	if _, taken := db.Cache.UsernameToID[usr.Username]; taken {
		return 0, models.ErrUsernameTaken
	}

	stored := *usr
	stored.ID = db.Cache.NextUserID
	db.Cache.NextUserID++
	db.Cache.Users[stored.ID] = &stored
	db.Cache.UsernameToID[stored.Username] = stored.ID

	if err := db.flush(); err != nil {
		delete(db.Cache.Users, stored.ID)
		delete(db.Cache.UsernameToID, stored.Username)
		db.Cache.NextUserID--
		return 0, err
	}

	return stored.ID, nil
}

func (db *JSONDB) GetUserByID(ctx context.Context, userID int64) (*user.User, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	usr, ok := db.Cache.Users[userID]
	if !ok {
		return &user.User{}, nil
	}
	found := *usr

	return &found, nil
}

func (db *JSONDB) GetUserByUsername(ctx context.Context, username string) (*user.User, error) {
	db.mu.RLock()
	userID, ok := db.Cache.UsernameToID[username]
	db.mu.RUnlock()
	if !ok {
		return &user.User{}, nil
	}

	return db.GetUserByID(ctx, userID)
}

func (db *JSONDB) InsertShortLink(ctx context.Context, link *models.ShortLink) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if _, taken := db.Cache.Links[link.Short]; taken {
		return models.ErrShortCodeTaken
	}

	stored := *link
	stored.ID = db.Cache.NextLinkID
	db.Cache.NextLinkID++
	db.Cache.Links[stored.Short] = &stored

	if err := db.flush(); err != nil {
		delete(db.Cache.Links, stored.Short)
		db.Cache.NextLinkID--
		return err
	}
	link.ID = stored.ID

	return nil
}

func (db *JSONDB) FindFullByShort(ctx context.Context, short string) (string, bool, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	link, ok := db.Cache.Links[short]
	if !ok {
		return "", false, nil
	}

	return link.Long, true, nil
}

func (db *JSONDB) IncrementCounters(
	ctx context.Context,
	short string,
	impressions,
	clicks int64,
) (string, bool, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	link, ok := db.Cache.Links[short]
	if !ok {
		return "", false, nil
	}
	link.Impressions += impressions
	link.Clicks += clicks

	if err := db.flush(); err != nil {
		link.Impressions -= impressions
		link.Clicks -= clicks
		return "", false, err
	}

	return link.Long, true, nil
}

func (db *JSONDB) GetUserLinks(ctx context.Context, userID int64) ([]models.ShortLink, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	result := []models.ShortLink{}
	for _, link := range db.Cache.Links {
		if link.UserID == userID {
			result = append(result, *link)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })

	return result, nil
}

func (db *JSONDB) ResetUserCounters(ctx context.Context, userID int64) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	previous := map[*models.ShortLink]models.ShortLink{}
	for _, link := range db.Cache.Links {
		if link.UserID == userID {
			previous[link] = *link
			link.Clicks = 0
			link.Impressions = 0
		}
	}

	if err := db.flush(); err != nil {
		for link, before := range previous {
			*link = before
		}
		return err
	}

	return nil
}

func (db *JSONDB) GetNumberOfShortenedURLs(ctx context.Context) (int64, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	return int64(len(db.Cache.Links)), nil
}

func (db *JSONDB) GetNumberOfUsers(ctx context.Context) (int64, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	return int64(len(db.Cache.Users)), nil
}

func (db *JSONDB) Ping(ctx context.Context) error {
	return nil
}

// Close writes the final state to disk.
func (db *JSONDB) Close() error {
	db.mu.Lock()
	defer db.mu.Unlock()

	return db.flush()
}
