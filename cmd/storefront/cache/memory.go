package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

type Config struct {
	// DefaultTTL applies when Set is called with a zero ttl.
	DefaultTTL time.Duration

	// MaxSize is the maximum number of entries kept after cleanup.
	// Oldest entries are removed first. Zero means unlimited.
	MaxSize int

	// CleanupInterval defines how often expired entries are removed and
	// MaxSize is enforced. Zero disables the cleanup routine.
	CleanupInterval time.Duration
}

func DefaultConfig() Config {
	return Config{
		DefaultTTL:      5 * time.Minute,
		MaxSize:         1000,
		CleanupInterval: time.Minute,
	}
}

type entry struct {
	data      []byte
	createdAt time.Time
	expiresAt time.Time
}

// Memory is an in-process Store.
type Memory struct {
	entries  sync.Map // map[string]*entry
	config   Config
	log      zerolog.Logger
	stopChan chan struct{}
	stopOnce sync.Once
	now      func() time.Time
}

func NewMemory(config Config, log zerolog.Logger) *Memory {
	m := &Memory{
		config:   config,
		log:      log.With().Str("component", "cache").Logger(),
		stopChan: make(chan struct{}),
		now:      time.Now,
	}

	if config.CleanupInterval > 0 {
		go m.startCleanupRoutine()
		m.log.Info().
			Dur("interval", config.CleanupInterval).
			Int("max_size", config.MaxSize).
			Dur("ttl", config.DefaultTTL).
			Msg("Started cache cleanup routine")
	}
	return m
}

func (m *Memory) startCleanupRoutine() {
	ticker := time.NewTicker(m.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.cleanup()
		case <-m.stopChan:
			m.log.Info().Msg("Stopping cache cleanup routine")
			return
		}
	}
}

type keyedEntry struct {
	key string
	*entry
}

func (m *Memory) cleanup() {
	var (
		totalEntries   int
		expiredEntries int
		removedEntries int
		now            = m.now()
		live           = make([]keyedEntry, 0)
	)

	m.entries.Range(func(key, value any) bool {
		totalEntries++
		e := value.(*entry)
		if now.After(e.expiresAt) {
			m.entries.Delete(key)
			expiredEntries++
		} else {
			live = append(live, keyedEntry{key: key.(string), entry: e})
		}
		return true
	})

	if m.config.MaxSize > 0 && len(live) > m.config.MaxSize {
		sort.Slice(live, func(i, j int) bool {
			return live[i].createdAt.Before(live[j].createdAt)
		})
		for _, e := range live[:len(live)-m.config.MaxSize] {
			m.entries.Delete(e.key)
			removedEntries++
		}
	}

	m.log.Debug().
		Int("total_entries", totalEntries).
		Int("expired_removed", expiredEntries).
		Int("size_limit_removed", removedEntries).
		Int("remaining_entries", len(live)-removedEntries).
		Msg("Completed cache cleanup")
}

func (m *Memory) Get(_ context.Context, key string, dst any) (bool, error) {
	value, ok := m.entries.Load(key)
	if !ok {
		return false, nil
	}

	e := value.(*entry)
	if m.now().After(e.expiresAt) {
		m.entries.Delete(key)
		return false, nil
	}

	if err := json.Unmarshal(e.data, dst); err != nil {
		return false, fmt.Errorf("failed to decode cache entry %s: %w", key, err)
	}
	return true, nil
}

func (m *Memory) Set(_ context.Context, key string, value any, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = m.config.DefaultTTL
	}

	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode cache entry %s: %w", key, err)
	}

	now := m.now()
	m.entries.Store(key, &entry{data: data, createdAt: now, expiresAt: now.Add(ttl)})
	m.log.Debug().Str("key", key).Time("expires", now.Add(ttl)).Msg("Stored cache entry")
	return nil
}

func (m *Memory) Delete(_ context.Context, key string) error {
	m.entries.Delete(key)
	return nil
}

func (m *Memory) DeletePrefix(_ context.Context, prefix string) error {
	removed := 0
	m.entries.Range(func(key, _ any) bool {
		if strings.HasPrefix(key.(string), prefix) {
			m.entries.Delete(key)
			removed++
		}
		return true
	})
	m.log.Debug().Str("prefix", prefix).Int("removed", removed).Msg("Invalidated cache entries")
	return nil
}

// Len counts the stored entries, expired ones included until cleanup.
func (m *Memory) Len() int {
	n := 0
	m.entries.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}

// Close stops the cleanup routine and clears all entries.
func (m *Memory) Close() error {
	m.stopOnce.Do(func() {
		if m.config.CleanupInterval > 0 {
			close(m.stopChan)
		}
		m.entries.Range(func(key, _ any) bool {
			m.entries.Delete(key)
			return true
		})
		m.log.Info().Msg("Cache cleared and stopped")
	})
	return nil
}
