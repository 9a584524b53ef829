package bot

import (
	"context"
	"fmt"
	"log"
	"os"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/example/aayra/internal/ai"
	"github.com/example/aayra/internal/database"
	"github.com/example/aayra/internal/lifecycle"
	"github.com/example/aayra/internal/review"
	"github.com/example/aayra/internal/timer"
	"github.com/example/aayra/pkg/models"
)

// MenuButton represents a button in an inline menu
type MenuButton struct {
	Text         string
	CallbackData string
}

// createKeyboard creates a keyboard from menu buttons
func createKeyboard(buttons [][]MenuButton) tgbotapi.InlineKeyboardMarkup {
	var keyboard [][]tgbotapi.InlineKeyboardButton
	for _, row := range buttons {
		var keyboardRow []tgbotapi.InlineKeyboardButton
		for _, button := range row {
			keyboardRow = append(keyboardRow, tgbotapi.NewInlineKeyboardButtonData(button.Text, button.CallbackData))
		}
		keyboard = append(keyboard, keyboardRow)
	}
	return tgbotapi.NewInlineKeyboardMarkup(keyboard...)
}

// Bot is the Telegram surface over the session and review controllers. Each
// chat drives at most one session at a time; countdowns live in memory and
// feed timer events back into the lifecycle controller.
type Bot struct {
	api       *tgbotapi.BotAPI
	lifecycle *lifecycle.Controller
	reviews   *review.Controller
	users     *database.UserRepository
	sessions  *database.SessionRepository
	contents  *database.ContentRepository
	config    *BotConfig

	mu              sync.Mutex
	currentSessions map[int64]string // chat -> active session id
	countdowns      map[int64]*timer.Countdown
}

// fallbackGenerator serves deterministic placeholder content when no OpenAI
// key is configured
type fallbackGenerator struct{}

func (fallbackGenerator) Generate(ctx context.Context, subject, topic string, materials []string) (*models.GeneratedContent, error) {
	return ai.FallbackContent(subject, topic), nil
}

func (fallbackGenerator) Fallback(subject, topic string) *models.GeneratedContent {
	return ai.FallbackContent(subject, topic)
}

// New creates a new bot instance
func New() (*Bot, error) {
	token := os.Getenv("TELEGRAM_BOT_TOKEN")
	if token == "" {
		return nil, fmt.Errorf("TELEGRAM_BOT_TOKEN environment variable is not set")
	}

	if database.DB == nil {
		return nil, fmt.Errorf("database connection is not established")
	}

	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}

	var generator lifecycle.ContentGenerator
	if g, err := ai.New(); err != nil {
		log.Printf("Warning: content generation disabled, using fallback content: %v", err)
		generator = fallbackGenerator{}
	} else {
		generator = g
	}

	sessionRepo := database.NewSessionRepository()
	reviewRepo := database.NewReviewRepository()
	contentRepo := database.NewContentRepository()

	lc := lifecycle.New(sessionRepo, reviewRepo, contentRepo, generator)
	rc := review.New(reviewRepo, contentRepo)

	b := &Bot{
		api:             api,
		lifecycle:       lc,
		reviews:         rc,
		users:           database.NewUserRepository(),
		sessions:        sessionRepo,
		contents:        contentRepo,
		config:          DefaultConfig(),
		currentSessions: make(map[int64]string),
		countdowns:      make(map[int64]*timer.Countdown),
	}

	lc.SetStatusListener(func(sessionID string, from, to models.SessionStatus) {
		log.Printf("Session %s: %s -> %s", sessionID, from, to)
	})
	rc.SetCompletionListener(func(sessionID string, stage int, nextDue string) {
		if nextDue == "" {
			log.Printf("Session %s finished its review cycle at stage %d", sessionID, stage)
			return
		}
		log.Printf("Session %s completed review stage %d, next due %s", sessionID, stage, nextDue)
	})

	return b, nil
}

// Start begins polling for updates until the context is cancelled
func (b *Bot) Start(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30
	updates := b.api.GetUpdatesChan(u)

	log.Printf("Authorized on account %s", b.api.Self.UserName)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			b.handleUpdate(ctx, update)
		}
	}
}

// Stop shuts the bot down
func (b *Bot) Stop(ctx context.Context) error {
	b.api.StopReceivingUpdates()

	b.mu.Lock()
	defer b.mu.Unlock()
	for chatID, c := range b.countdowns {
		c.Stop()
		delete(b.countdowns, chatID)
	}
	return nil
}

// SendReviewReminder implements scheduler.Notifier
func (b *Bot) SendReviewReminder(userID int64, count int) error {
	text := fmt.Sprintf("📚 You have %d review(s) due. Use /reviews to see them.", count)
	msg := tgbotapi.NewMessage(userID, text)
	if _, err := b.api.Send(msg); err != nil {
		return fmt.Errorf("failed to send reminder: %w", err)
	}
	return nil
}

// send is a convenience wrapper that logs delivery failures
func (b *Bot) send(c tgbotapi.Chattable) {
	if _, err := b.api.Send(c); err != nil {
		log.Printf("Error sending message: %v", err)
	}
}

// reply sends plain text to a chat
func (b *Bot) reply(chatID int64, text string) {
	b.send(tgbotapi.NewMessage(chatID, text))
}

func (b *Bot) setCurrentSession(chatID int64, sessionID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if sessionID == "" {
		delete(b.currentSessions, chatID)
		return
	}
	b.currentSessions[chatID] = sessionID
}

func (b *Bot) currentSession(chatID int64) (string, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	id, ok := b.currentSessions[chatID]
	return id, ok
}

// startCountdown replaces any running countdown for the chat
func (b *Bot) startCountdown(chatID int64, seconds int, onFinish func()) {
	b.mu.Lock()
	if old, ok := b.countdowns[chatID]; ok {
		old.Stop()
	}
	c := timer.New(seconds, onFinish)
	b.countdowns[chatID] = c
	b.mu.Unlock()
	c.Start()
}

func (b *Bot) stopCountdown(chatID int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if c, ok := b.countdowns[chatID]; ok {
		c.Stop()
		delete(b.countdowns, chatID)
	}
}
