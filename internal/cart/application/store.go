package application

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/campuseats/ordering/internal/cart/domain"
)

// ErrNotLoaded rejects mutations issued before the initial restore from
// the durable slot. Writing earlier would let an empty default clobber
// the saved cart.
var ErrNotLoaded = errors.New("cart not loaded yet")

const defaultDebounce = 500 * time.Millisecond

// Slot is the durable key/value mirror of a cart. Load returns (nil, nil)
// when the key holds nothing.
type Slot interface {
	Load(ctx context.Context, key string) ([]byte, error)
	Save(ctx context.Context, key string, data []byte) error
}

// Store owns one session's cart and mirrors it to its slot. Mirror writes
// are debounced: rapid mutations coalesce into one save. Sessions sharing
// a slot key race whole-slot, last write wins; that race is accepted, not
// merged.
type Store struct {
	log      *slog.Logger
	slot     Slot
	key      string
	debounce time.Duration

	mu     sync.Mutex
	cart   domain.Cart
	loaded bool
	timer  *time.Timer
}

func NewStore(log *slog.Logger, slot Slot, sessionKey string) *Store {
	return &Store{
		log:      log,
		slot:     slot,
		key:      sessionKey,
		debounce: defaultDebounce,
	}
}

// Load restores the cart from the slot exactly once and flips the loaded
// flag. A structurally incompatible stored value is treated as absent,
// never as a crash.
func (s *Store) Load(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loaded {
		return nil
	}

	data, err := s.slot.Load(ctx, s.key)
	if err != nil {
		return err
	}
	if data != nil {
		cart, err := domain.UnmarshalSlot(data)
		if err != nil {
			s.log.Warn("discarding unreadable cart slot", "key", s.key, "err", err)
		} else {
			s.cart = cart
		}
	}
	s.loaded = true
	return nil
}

func (s *Store) Loaded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loaded
}

func (s *Store) AddItem(line domain.Line, quantity int) error {
	return s.mutate(func() { s.cart.Add(line, quantity) })
}

func (s *Store) UpdateQuantity(productID string, quantity int) error {
	return s.mutate(func() { s.cart.SetQuantity(productID, quantity) })
}

func (s *Store) RemoveItem(productID string) error {
	return s.mutate(func() { s.cart.Remove(productID) })
}

func (s *Store) Clear() error {
	return s.mutate(func() { s.cart.Clear() })
}

func (s *Store) mutate(fn func()) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.loaded {
		return ErrNotLoaded
	}
	fn()
	s.scheduleSave()
	return nil
}

// scheduleSave arms (or re-arms) the debounce timer. Caller holds mu.
func (s *Store) scheduleSave() {
	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = time.AfterFunc(s.debounce, s.save)
}

func (s *Store) save() {
	s.mu.Lock()
	data, err := s.cart.MarshalSlot()
	key := s.key
	s.mu.Unlock()
	if err != nil {
		s.log.Error("cart marshal failed", "key", key, "err", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.slot.Save(ctx, key, data); err != nil {
		s.log.Error("cart save failed", "key", key, "err", err)
	}
}

// Flush cancels any pending debounce and writes the mirror now. Used on
// checkout and shutdown.
func (s *Store) Flush(ctx context.Context) error {
	s.mu.Lock()
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	data, err := s.cart.MarshalSlot()
	key := s.key
	s.mu.Unlock()
	if err != nil {
		return err
	}
	return s.slot.Save(ctx, key, data)
}

func (s *Store) Lines() []domain.Line {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cart.Lines()
}

func (s *Store) ItemCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cart.ItemCount()
}

func (s *Store) Subtotal() decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cart.Subtotal()
}

func (s *Store) Tax() decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cart.Tax(domain.DefaultTaxRate)
}

func (s *Store) Total() decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cart.Total(domain.DefaultTaxRate)
}
