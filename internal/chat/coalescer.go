package chat

import (
	"context"
	"sync"
	"time"

	"log/slog"
)

// Таймаут на доставку одного отложенного ответа.
const dispatchTimeout = 30 * time.Second

// Messenger доставляет текст абоненту (например, по SMS).
type Messenger interface {
	SendText(ctx context.Context, to, text string) error
}

// pendingReply хранит последний вычисленный ответ абонента и его таймер.
type pendingReply struct {
	text  string
	timer *time.Timer
}

// Coalescer откладывает отправку ответа на короткую паузу и заменяет его,
// если за это время для того же абонента вычислен более свежий ответ.
// Сообщение, порезанное клиентом на несколько вебхуков, порождает несколько
// независимых inference-задач; без коалесценции каждая ушла бы отдельной SMS.
// Это debounce, а не батчер: пауза перезапускается на каждом новом ответе.
type Coalescer struct {
	mu        sync.Mutex
	delay     time.Duration
	pending   map[string]*pendingReply
	messenger Messenger
	logger    *slog.Logger
}

func NewCoalescer(delay time.Duration, messenger Messenger, logger *slog.Logger) *Coalescer {
	return &Coalescer{
		delay:     delay,
		pending:   make(map[string]*pendingReply),
		messenger: messenger,
		logger:    logger,
	}
}

// Schedule запоминает text как отложенный ответ абонента (последняя запись
// выигрывает), снимает ранее взведённый таймер и взводит новый. Снятие и
// взведение выполняются в одной критической секции, поэтому у абонента в
// любой момент не больше одного живого таймера.
func (c *Coalescer) Schedule(sender, text string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if prev, ok := c.pending[sender]; ok {
		// Stop может опоздать: тогда старый таймер сам увидит, что он
		// вытеснен, и ничего не отправит.
		prev.timer.Stop()
	}

	p := &pendingReply{text: text}
	p.timer = time.AfterFunc(c.delay, func() {
		c.fire(sender, p)
	})
	c.pending[sender] = p
}

// fire забирает отложенный ответ и доставляет его. Слот очищается только
// если сработавший таймер всё ещё актуален для абонента: проигравший гонку
// со Schedule таймер становится no-op, двойной отправки не бывает.
func (c *Coalescer) fire(sender string, armed *pendingReply) {
	c.mu.Lock()
	current, ok := c.pending[sender]
	if !ok || current != armed {
		c.mu.Unlock()
		return
	}
	delete(c.pending, sender)
	c.mu.Unlock()

	// Сетевой вызов строго вне блокировки.
	ctx, cancel := context.WithTimeout(context.Background(), dispatchTimeout)
	defer cancel()

	if err := c.messenger.SendText(ctx, sender, current.text); err != nil {
		// Доставка best-effort: ошибку логируем, повторов нет.
		c.logger.Error("reply delivery failed",
			slog.String("to", sender),
			slog.String("error", err.Error()))
		return
	}
	c.logger.Info("reply delivered", slog.String("to", sender))
}
