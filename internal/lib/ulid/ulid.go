// Package ulid генерирует ULID — уникальные идентификаторы, сортируемые
// по времени создания. Используется для первичных ключей связей.
package ulid

import (
	crand "crypto/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

var (
	mu      sync.Mutex
	entropy = ulid.Monotonic(crand.Reader, 0)
)

// New возвращает новый ULID в каноничном строковом виде.
// Монотонный источник энтропии защищён мьютексом.
func New() string {
	mu.Lock()
	defer mu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), entropy).String()
}
