package element

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/reportforge/designer/internal/geometry"
)

var (
	ErrNotFound    = errors.New("element not found")
	ErrLocked      = errors.New("element is locked")
	ErrInvalidSize = errors.New("element size must be positive")
	ErrDuplicateID = errors.New("element id already exists")
)

const (
	OpMove       = "element.move"
	OpBatchMove  = "element.batch_move"
	OpResize     = "element.resize"
	OpCreate     = "element.create"
	OpDelete     = "element.delete"
	OpVisibility = "element.visibility"
	OpLocked     = "element.locked"
)

// Operation represents a mutation of a template's element list.
type Operation struct {
	Type      string           `json:"type"`
	ElementID string           `json:"elementId,omitempty"`
	Position  *geometry.Point  `json:"position,omitempty"`
	Size      *geometry.Size   `json:"size,omitempty"`
	Updates   []PositionUpdate `json:"updates,omitempty"`
	Element   *Ref             `json:"element,omitempty"`
	Index     *int             `json:"index,omitempty"`
	Visible   *bool            `json:"visible,omitempty"`
	Locked    *bool            `json:"locked,omitempty"`
}

// Listener is notified after an operation has been applied.
type Listener func(op Operation, seq int64)

// DefaultLogLimit is how many operations a store keeps for catch-up syncs.
const DefaultLogLimit = 2048

// Store holds the authoritative element list of one template.
// It is safe for concurrent use.
type Store struct {
	mu        sync.RWMutex
	elements  []Ref
	seq       int64
	opLog     []Operation
	logStart  int64 // seq of the operation before opLog[0]
	logLimit  int
	dirty     bool
	listeners map[int]Listener
	nextID    int
}

type StoreOption func(*Store)

// WithLogLimit bounds the operation log. Older operations are dropped and
// clients behind them receive a full snapshot instead.
func WithLogLimit(n int) StoreOption {
	return func(s *Store) {
		if n > 0 {
			s.logLimit = n
		}
	}
}

// NewStore creates a store from an initial element list in paint order.
func NewStore(elements []Ref, opts ...StoreOption) *Store {
	s := &Store{
		elements:  slices.Clone(elements),
		opLog:     make([]Operation, 0),
		logLimit:  DefaultLogLimit,
		listeners: make(map[int]Listener),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Elements returns a snapshot of all elements in paint order.
func (s *Store) Elements() []Ref {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.elements)
}

// Get returns a single element.
func (s *Store) Get(id string) (Ref, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Find(s.elements, id)
}

// Seq returns the sequence number of the last applied operation.
func (s *Store) Seq() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.seq
}

// Snapshot returns the elements together with the sequence they reflect.
func (s *Store) Snapshot() ([]Ref, int64) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.elements), s.seq
}

// Changes is what a client that has seen every operation up to some seq
// needs to catch up to Seq.
type Changes struct {
	Ops []Operation
	// Elements is set instead of Ops when the log no longer reaches back far
	// enough; the client replaces its element list.
	Elements []Ref
	Seq      int64
}

// Reset reports whether the client must replace its elements.
func (c Changes) Reset() bool {
	return c.Elements != nil
}

// ChangesSince returns the operations applied after seq, or a snapshot when
// they were dropped from the log.
func (s *Store) ChangesSince(seq int64) Changes {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if seq < 0 {
		seq = 0
	}
	if seq < s.logStart {
		return Changes{Elements: slices.Clone(s.elements), Seq: s.seq}
	}
	if seq >= s.seq {
		return Changes{Seq: s.seq}
	}
	return Changes{Ops: slices.Clone(s.opLog[seq-s.logStart:]), Seq: s.seq}
}

// TakeDirty returns a snapshot and clears the dirty flag if the store changed
// since the last call.
func (s *Store) TakeDirty() ([]Ref, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.dirty {
		return nil, false
	}
	s.dirty = false
	return slices.Clone(s.elements), true
}

// MarkDirty flags the store for the next flush, e.g. after a failed save.
func (s *Store) MarkDirty() {
	s.mu.Lock()
	s.dirty = true
	s.mu.Unlock()
}

// Subscribe registers a listener and returns a function removing it.
func (s *Store) Subscribe(fn Listener) func() {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

// MoveElement moves a single element.
func (s *Store) MoveElement(ctx context.Context, id string, pos geometry.Point) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := s.Apply(Operation{Type: OpMove, ElementID: id, Position: &pos})
	return err
}

// BatchUpdatePositions moves several elements atomically: either every update
// applies or none does.
func (s *Store) BatchUpdatePositions(ctx context.Context, updates []PositionUpdate) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := s.Apply(Operation{Type: OpBatchMove, Updates: updates})
	return err
}

// ResizeElement sets an element's size and position.
func (s *Store) ResizeElement(ctx context.Context, id string, size geometry.Size, pos geometry.Point) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := s.Apply(Operation{Type: OpResize, ElementID: id, Size: &size, Position: &pos})
	return err
}

// Apply applies an operation and returns its sequence number.
func (s *Store) Apply(op Operation) (int64, error) {
	s.mu.Lock()
	if err := s.applyOperationLocked(op); err != nil {
		s.mu.Unlock()
		return 0, err
	}
	s.seq++
	seq := s.seq
	s.opLog = append(s.opLog, op)
	if len(s.opLog) > s.logLimit {
		// keep the newest half so trimming happens rarely
		drop := len(s.opLog) - s.logLimit/2
		s.opLog = slices.Clone(s.opLog[drop:])
		s.logStart += int64(drop)
	}
	s.dirty = true

	listeners := make([]Listener, 0, len(s.listeners))
	for _, fn := range s.listeners {
		listeners = append(listeners, fn)
	}
	s.mu.Unlock()

	for _, fn := range listeners {
		fn(op, seq)
	}
	return seq, nil
}

// applyOperationLocked applies the operation without locking (caller must hold lock)
func (s *Store) applyOperationLocked(op Operation) error {
	switch op.Type {
	case OpMove:
		return s.applyMove(op)
	case OpBatchMove:
		return s.applyBatchMove(op)
	case OpResize:
		return s.applyResize(op)
	case OpCreate:
		return s.applyCreate(op)
	case OpDelete:
		return s.applyDelete(op)
	case OpVisibility:
		return s.applyVisibility(op)
	case OpLocked:
		return s.applyLockFlag(op)
	default:
		return fmt.Errorf("unknown operation type: %s", op.Type)
	}
}

func (s *Store) indexOf(id string) int {
	return slices.IndexFunc(s.elements, func(r Ref) bool { return r.ID == id })
}

func (s *Store) mutable(id string) (int, error) {
	i := s.indexOf(id)
	if i < 0 {
		return -1, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if s.elements[i].Locked {
		return -1, fmt.Errorf("%w: %s", ErrLocked, id)
	}
	return i, nil
}

func (s *Store) applyMove(op Operation) error {
	if op.Position == nil {
		return errors.New("move requires a position")
	}
	i, err := s.mutable(op.ElementID)
	if err != nil {
		return err
	}
	s.elements[i].Position = *op.Position
	return nil
}

func (s *Store) applyBatchMove(op Operation) error {
	if len(op.Updates) == 0 {
		return errors.New("batch move requires at least one update")
	}
	idx := make([]int, len(op.Updates))
	for n, u := range op.Updates {
		i, err := s.mutable(u.ElementID)
		if err != nil {
			return err
		}
		idx[n] = i
	}
	for n, u := range op.Updates {
		s.elements[idx[n]].Position = u.NewPosition
	}
	return nil
}

func (s *Store) applyResize(op Operation) error {
	if op.Size == nil || op.Position == nil {
		return errors.New("resize requires size and position")
	}
	if op.Size.Width <= 0 || op.Size.Height <= 0 {
		return ErrInvalidSize
	}
	i, err := s.mutable(op.ElementID)
	if err != nil {
		return err
	}
	s.elements[i].Size = *op.Size
	s.elements[i].Position = *op.Position
	return nil
}

func (s *Store) applyCreate(op Operation) error {
	if op.Element == nil || op.Element.ID == "" {
		return errors.New("create requires an element with an id")
	}
	if s.indexOf(op.Element.ID) >= 0 {
		return fmt.Errorf("%w: %s", ErrDuplicateID, op.Element.ID)
	}
	if op.Element.Size.Width <= 0 || op.Element.Size.Height <= 0 {
		return ErrInvalidSize
	}

	el := *op.Element
	if op.Index != nil && *op.Index >= 0 && *op.Index < len(s.elements) {
		s.elements = slices.Insert(s.elements, *op.Index, el)
	} else {
		s.elements = append(s.elements, el)
	}
	return nil
}

func (s *Store) applyDelete(op Operation) error {
	i := s.indexOf(op.ElementID)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, op.ElementID)
	}
	s.elements = slices.Delete(s.elements, i, i+1)
	return nil
}

func (s *Store) applyVisibility(op Operation) error {
	if op.Visible == nil {
		return errors.New("visibility requires a value")
	}
	i := s.indexOf(op.ElementID)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, op.ElementID)
	}
	s.elements[i].Visible = *op.Visible
	return nil
}

func (s *Store) applyLockFlag(op Operation) error {
	if op.Locked == nil {
		return errors.New("locked requires a value")
	}
	i := s.indexOf(op.ElementID)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, op.ElementID)
	}
	s.elements[i].Locked = *op.Locked
	return nil
}
