package chat

import (
	"crypto/sha256"
	"sync"
	"time"
)

type dedupRecord struct {
	digest     [sha256.Size]byte
	observedAt time.Time
}

// DedupCache подавляет точные повторы сообщений от одного абонента.
// Хранится только последняя принятая запись на абонента; записи живут
// до конца процесса.
type DedupCache struct {
	mu     sync.Mutex
	window time.Duration
	seen   map[string]dedupRecord
}

// NewDedupCache создаёт кэш с окном подавления повторов.
func NewDedupCache(window time.Duration) *DedupCache {
	return &DedupCache{
		window: window,
		seen:   make(map[string]dedupRecord),
	}
}

// Admit решает, принимать ли сообщение. Повтор отклоняется только если
// digest тела совпадает с последним принятым и с него прошло меньше окна.
// При принятии запись абонента безусловно перезаписывается: накопления
// по разным телам нет, подавляются только точные дубликаты.
func (c *DedupCache) Admit(sender, body string, now time.Time) bool {
	digest := sha256.Sum256([]byte(body))

	c.mu.Lock()
	defer c.mu.Unlock()

	if rec, ok := c.seen[sender]; ok {
		if rec.digest == digest && now.Sub(rec.observedAt) < c.window {
			return false
		}
	}

	c.seen[sender] = dedupRecord{digest: digest, observedAt: now}
	return true
}
