package ledger

import (
	"sync"

	"pocket-ledger/pkg/logging"

	"go.uber.org/zap"
)

type Level string

const (
	LevelSuccess Level = "success"
	LevelError   Level = "error"
)

// Messages sent after successful mutations.
const (
	MsgTransactionAdded    = "Movimentação adicionada!"
	MsgTransactionRemoved  = "Movimentação removida!"
	MsgTransactionRestored = "Movimentação restaurada!"
	MsgGoalAdded           = "Meta criada!"
	MsgContributionAdded   = "Aporte realizado!"
	MsgGoalRemoved         = "Meta removida!"
	MsgProfileUpdated      = "Perfil atualizado!"
)

type Notification struct {
	Level   Level  `json:"level"`
	Message string `json:"message"`
}

// Notifier receives user-facing notifications. Notify is called without the store lock
// held and must not block.
type Notifier interface {
	Notify(n Notification)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(n Notification)

func (f NotifierFunc) Notify(n Notification) { f(n) }

// LogNotifier writes notifications to a logger.
type LogNotifier struct {
	logger *logging.Logger
}

// NewLogNotifier logs notifications on logger, failures at warn level.
func NewLogNotifier(logger *logging.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (l *LogNotifier) Notify(n Notification) {
	if n.Level == LevelError {
		l.logger.Warn("notification", zap.String("message", n.Message))
		return
	}
	l.logger.Info("notification", zap.String("message", n.Message))
}

// Recorder keeps every notification it receives.
type Recorder struct {
	mu  sync.Mutex
	all []Notification
}

func (r *Recorder) Notify(n Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.all = append(r.all, n)
}

func (r *Recorder) All() []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Notification(nil), r.all...)
}

// Last returns the most recent notification.
func (r *Recorder) Last() (Notification, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.all) == 0 {
		return Notification{}, false
	}
	return r.all[len(r.all)-1], true
}
