// Package session хранит состояние диалога подбора подписки для каждого пользователя.
package session

import "sync"

// State — этап диалога выдачи ссылки.
type State int

const (
	StateIdle State = iota
	StateSelectingType
	StateSelectingPlan
	StateAwaitingEmail
	StateEmailValidated
	StateAwaitingPayment
	StateLinkIssued
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSelectingType:
		return "selecting_type"
	case StateSelectingPlan:
		return "selecting_plan"
	case StateAwaitingEmail:
		return "awaiting_email"
	case StateEmailValidated:
		return "email_validated"
	case StateAwaitingPayment:
		return "awaiting_payment"
	case StateLinkIssued:
		return "link_issued"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Причины перехода в StateFailed.
const (
	ReasonRateLimited      = "rate_limited"
	ReasonBadPayload       = "bad_payload"
	ReasonLinkNotFound     = "link_not_found"
	ReasonPanelUnavailable = "panel_unavailable"
	ReasonAuth             = "auth"
)

// Лимиты попыток: счётчик растёт на каждую отправку email и на каждое
// нажатие оплаты; диалог завершается с ReasonRateLimited, когда счётчик
// превышает лимит. Сам лимит ответов пользователь получает как обычно.
const (
	MaxEmailAttempts = 5
	MaxPayAttempts   = 5
)

// Selection — снимок состояния диалога одного пользователя.
type Selection struct {
	State             State
	ConnectionType    string
	PlanID            string
	Email             string
	EmailAttempts     int
	PayAttempts       int
	AwaitingBroadcast bool
	Reason            string
}

// Store — потокобезопасное in-memory хранилище диалогов по id пользователя.
type Store struct {
	mu       sync.Mutex
	sessions map[int64]*Selection
}

func NewStore() *Store {
	return &Store{sessions: make(map[int64]*Selection)}
}

// Get возвращает копию состояния диалога. Для нового пользователя — StateIdle.
func (s *Store) Get(userID int64) Selection {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sel, ok := s.sessions[userID]; ok {
		return *sel
	}
	return Selection{State: StateIdle}
}

// Set целиком заменяет состояние диалога пользователя.
func (s *Store) Set(userID int64, sel Selection) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := sel
	s.sessions[userID] = &cp
}

// Update применяет fn к текущему состоянию под блокировкой и сохраняет результат.
func (s *Store) Update(userID int64, fn func(*Selection)) Selection {
	s.mu.Lock()
	defer s.mu.Unlock()

	sel, ok := s.sessions[userID]
	if !ok {
		sel = &Selection{State: StateIdle}
		s.sessions[userID] = sel
	}
	fn(sel)
	return *sel
}

// Reset возвращает диалог пользователя в исходное состояние.
func (s *Store) Reset(userID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.sessions, userID)
}

// Fail переводит диалог в StateFailed с указанной причиной.
func (s *Store) Fail(userID int64, reason string) Selection {
	return s.Update(userID, func(sel *Selection) {
		sel.State = StateFailed
		sel.Reason = reason
	})
}
