package bot

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/example/aayra/internal/excel"
	"github.com/example/aayra/internal/lifecycle"
	"github.com/example/aayra/pkg/models"
)

const helpText = `Commands:
/new subject | topic [| focus | break] - start a study session
/upload <text> - submit study materials for the current session
/skipbreak - skip the break and finish the session
/abandon - discard the current session
/resume - pick an incomplete session back up
/restart - redo the focus block of an incomplete session
/reviews - list reviews due today
/reschedule - roll overdue reviews forward to today
/sessions - list completed sessions
/export - download your study history as a spreadsheet
/notify <hour|off> - set the daily reminder hour`

// actionUnavailable is what the user sees on InvalidTransition or
// EntryNotPending: a stale button, not a crash.
const actionUnavailable = "That action is no longer available, please refresh with /reviews or /new."

func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	if update.CallbackQuery != nil {
		b.handleCallback(ctx, update.CallbackQuery)
		return
	}
	if update.Message == nil || !update.Message.IsCommand() {
		return
	}
	b.handleCommand(ctx, update.Message)
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	args := strings.TrimSpace(msg.CommandArguments())

	switch msg.Command() {
	case "start":
		b.handleStart(ctx, msg)
	case "help":
		b.reply(chatID, helpText)
	case "new":
		b.handleNew(ctx, chatID, args)
	case "upload":
		b.handleUpload(ctx, chatID, args)
	case "skipbreak":
		b.handleSkipBreak(ctx, chatID)
	case "abandon":
		b.handleAbandon(ctx, chatID)
	case "resume":
		b.handleResume(ctx, chatID)
	case "restart":
		b.handleRestart(ctx, chatID)
	case "reviews":
		b.handleReviews(ctx, chatID)
	case "reschedule":
		b.handleReschedule(ctx, chatID)
	case "sessions":
		b.handleSessions(ctx, chatID)
	case "export":
		b.handleExport(ctx, chatID)
	case "notify":
		b.handleNotify(ctx, chatID, args)
	default:
		b.reply(chatID, "Unknown command. Try /help.")
	}
}

func (b *Bot) handleStart(ctx context.Context, msg *tgbotapi.Message) {
	_, lookupErr := b.users.GetByID(ctx, msg.Chat.ID)

	user := &models.User{
		ID:        msg.Chat.ID,
		Username:  msg.From.UserName,
		FirstName: msg.From.FirstName,
	}
	if err := b.users.Upsert(ctx, user); err != nil {
		log.Printf("Error registering user %d: %v", msg.Chat.ID, err)
		b.reply(msg.Chat.ID, "Something went wrong, please try again.")
		return
	}

	if lookupErr == nil {
		b.reply(msg.Chat.ID, "Welcome back! Check what's due with /reviews or start a new session with /new.")
		return
	}
	b.reply(msg.Chat.ID, "Welcome to Aayra! Start a focus session with /new subject | topic. See /help for everything else.")
}

func (b *Bot) handleNew(ctx context.Context, chatID int64, args string) {
	if _, ok := b.currentSession(chatID); ok {
		b.reply(chatID, "You already have a session in progress. Finish it or /abandon first.")
		return
	}

	parts := strings.Split(args, "|")
	if len(parts) < 2 {
		b.reply(chatID, "Usage: /new subject | topic [| focus minutes | break minutes]")
		return
	}
	subject := strings.TrimSpace(parts[0])
	topic := strings.TrimSpace(parts[1])
	focusMinutes := b.config.DefaultFocusMinutes
	breakMinutes := b.config.DefaultBreakMinutes
	if len(parts) > 2 {
		if v, err := strconv.Atoi(strings.TrimSpace(parts[2])); err == nil {
			focusMinutes = v
		}
	}
	if len(parts) > 3 {
		if v, err := strconv.Atoi(strings.TrimSpace(parts[3])); err == nil {
			breakMinutes = v
		}
	}

	session, err := b.lifecycle.CreateSession(ctx, chatID, subject, topic, focusMinutes, breakMinutes, true)
	if err != nil {
		log.Printf("Error creating session for %d: %v", chatID, err)
		b.reply(chatID, "Could not start the session: "+err.Error())
		return
	}
	b.setCurrentSession(chatID, session.ID)

	sessionID := session.ID
	b.startCountdown(chatID, focusMinutes*60, func() {
		if _, err := b.lifecycle.Advance(context.Background(), sessionID, lifecycle.EventFocusTimerFinished); err != nil {
			log.Printf("Error finishing focus for session %s: %v", sessionID, err)
			return
		}
		b.reply(chatID, "⏰ Focus time is up! Send your study materials with /upload <text>.")
	})

	b.reply(chatID, fmt.Sprintf("Started %s: %d minutes of focus. Go!", session.SessionName, focusMinutes))
}

func (b *Bot) handleUpload(ctx context.Context, chatID int64, args string) {
	sessionID, ok := b.currentSession(chatID)
	if !ok {
		b.reply(chatID, "No session in progress. Start one with /new.")
		return
	}
	if args == "" {
		b.reply(chatID, "Usage: /upload <your notes or materials>")
		return
	}

	session, content, err := b.lifecycle.SubmitMaterials(ctx, sessionID, []string{args})
	if err != nil {
		b.replyError(chatID, err)
		return
	}

	b.reply(chatID, fmt.Sprintf("Got it! Generated %d flashcards and %d quiz questions.",
		len(content.Flashcards), len(content.QuizQuestions)))

	if _, err := b.lifecycle.Advance(ctx, sessionID, lifecycle.EventValidationFinished); err != nil {
		b.replyError(chatID, err)
		return
	}
	b.startBreak(chatID, sessionID, session.BreakDurationMinutes)
}

// startBreak runs the break countdown; when it fires the session completes
// and its review cycle is seeded
func (b *Bot) startBreak(chatID int64, sessionID string, breakMinutes int) {
	b.startCountdown(chatID, breakMinutes*60, func() {
		b.finishSession(context.Background(), chatID, sessionID)
	})
	b.reply(chatID, fmt.Sprintf("☕ Break time: %d minutes. Skip it with /skipbreak.", breakMinutes))
}

func (b *Bot) finishSession(ctx context.Context, chatID int64, sessionID string) {
	if _, err := b.lifecycle.Advance(ctx, sessionID, lifecycle.EventBreakFinished); err != nil {
		log.Printf("Error completing session %s: %v", sessionID, err)
		b.replyError(chatID, err)
		return
	}
	b.setCurrentSession(chatID, "")
	b.reply(chatID, "🎉 Session completed! Your first review is due tomorrow.")
}

func (b *Bot) handleSkipBreak(ctx context.Context, chatID int64) {
	sessionID, ok := b.currentSession(chatID)
	if !ok {
		b.reply(chatID, "No session in progress.")
		return
	}
	b.stopCountdown(chatID)
	b.finishSession(ctx, chatID, sessionID)
}

func (b *Bot) handleAbandon(ctx context.Context, chatID int64) {
	sessionID, ok := b.currentSession(chatID)
	if !ok {
		b.reply(chatID, "No session in progress.")
		return
	}
	b.stopCountdown(chatID)
	if err := b.lifecycle.Discard(ctx, sessionID); err != nil {
		b.replyError(chatID, err)
		return
	}
	b.setCurrentSession(chatID, "")
	b.reply(chatID, "Session discarded.")
}

func (b *Bot) handleResume(ctx context.Context, chatID int64) {
	incomplete, err := b.sessions.ListByStatus(ctx, chatID, models.StatusIncomplete)
	if err != nil {
		log.Printf("Error listing incomplete sessions for %d: %v", chatID, err)
		b.reply(chatID, "Something went wrong, please try again.")
		return
	}
	if len(incomplete) == 0 {
		b.reply(chatID, "No incomplete sessions to resume.")
		return
	}

	session := incomplete[0]
	if _, err := b.lifecycle.Resume(ctx, session.ID); err != nil {
		b.replyError(chatID, err)
		return
	}
	b.setCurrentSession(chatID, session.ID)

	// The focus interval was already served; validation picks up where it
	// left off and the session heads into its break.
	if _, err := b.lifecycle.Advance(ctx, session.ID, lifecycle.EventValidationFinished); err != nil {
		b.replyError(chatID, err)
		return
	}
	b.reply(chatID, fmt.Sprintf("Resumed %s.", session.SessionName))
	b.startBreak(chatID, session.ID, session.BreakDurationMinutes)
}

// handleRestart redoes the focus block of an incomplete session instead of
// jumping straight back into validation
func (b *Bot) handleRestart(ctx context.Context, chatID int64) {
	if _, ok := b.currentSession(chatID); ok {
		b.reply(chatID, "You already have a session in progress. Finish it or /abandon first.")
		return
	}
	incomplete, err := b.sessions.ListByStatus(ctx, chatID, models.StatusIncomplete)
	if err != nil {
		log.Printf("Error listing incomplete sessions for %d: %v", chatID, err)
		b.reply(chatID, "Something went wrong, please try again.")
		return
	}
	if len(incomplete) == 0 {
		b.reply(chatID, "No incomplete sessions to restart.")
		return
	}

	session := incomplete[0]
	if _, err := b.lifecycle.Advance(ctx, session.ID, lifecycle.EventRestart); err != nil {
		b.replyError(chatID, err)
		return
	}
	b.setCurrentSession(chatID, session.ID)

	sessionID := session.ID
	b.startCountdown(chatID, session.FocusDurationMinutes*60, func() {
		if _, err := b.lifecycle.Advance(context.Background(), sessionID, lifecycle.EventFocusTimerFinished); err != nil {
			log.Printf("Error finishing focus for session %s: %v", sessionID, err)
			return
		}
		b.reply(chatID, "⏰ Focus time is up! Send your study materials with /upload <text>.")
	})
	b.reply(chatID, fmt.Sprintf("Restarted %s: %d minutes of focus. Go!", session.SessionName, session.FocusDurationMinutes))
}

func (b *Bot) handleReviews(ctx context.Context, chatID int64) {
	pending, err := b.reviews.PendingReviews(ctx, chatID, time.Now())
	if err != nil {
		log.Printf("Error listing pending reviews for %d: %v", chatID, err)
		b.reply(chatID, "Something went wrong, please try again.")
		return
	}
	if len(pending) == 0 {
		b.reply(chatID, "No reviews due. 🎉")
		return
	}

	var text strings.Builder
	var buttons [][]MenuButton
	fmt.Fprintf(&text, "You have %d review(s) due:\n", len(pending))
	for i, r := range pending {
		fmt.Fprintf(&text, "%d. %s (stage %d, due %s)\n", i+1, r.SessionName, r.ReviewStage, r.DueDate)
		buttons = append(buttons, []MenuButton{
			{Text: fmt.Sprintf("📖 Study %d", i+1), CallbackData: "study:" + r.SessionID},
			{Text: fmt.Sprintf("✅ Complete %d", i+1), CallbackData: "complete:" + r.EntryID},
		})
	}

	msg := tgbotapi.NewMessage(chatID, text.String())
	msg.ReplyMarkup = createKeyboard(buttons)
	b.send(msg)
}

func (b *Bot) handleCallback(ctx context.Context, cq *tgbotapi.CallbackQuery) {
	if _, err := b.api.Request(tgbotapi.NewCallback(cq.ID, "")); err != nil {
		log.Printf("Error answering callback: %v", err)
	}

	chatID := cq.Message.Chat.ID
	data := cq.Data
	if id := strings.TrimPrefix(data, "favorite:"); id != data {
		b.handleFavorite(ctx, chatID, id)
		return
	}
	if id := strings.TrimPrefix(data, "cycle:"); id != data {
		b.handleCycle(ctx, chatID, id)
		return
	}
	if id := strings.TrimPrefix(data, "study:"); id != data {
		b.handleStudy(ctx, chatID, id)
		return
	}
	if !strings.HasPrefix(data, "complete:") {
		return
	}
	entryID := strings.TrimPrefix(data, "complete:")

	next, err := b.reviews.CompleteReview(ctx, entryID, chatID, nil)
	if err != nil {
		b.replyError(chatID, err)
		return
	}
	if next == nil {
		b.reply(chatID, "Review complete. That was the last stage of this session's cycle. 🏁")
		return
	}
	b.reply(chatID, fmt.Sprintf("Review complete! Stage %d is due on %s.", next.ReviewStage, next.DueDate))
}

func (b *Bot) handleReschedule(ctx context.Context, chatID int64) {
	count, err := b.reviews.RescheduleMissed(ctx, chatID, b.config.RescheduleGraceDays)
	if err != nil {
		log.Printf("Error rescheduling reviews for %d: %v", chatID, err)
		b.reply(chatID, "Something went wrong, please try again.")
		return
	}
	if count == 0 {
		b.reply(chatID, "Nothing overdue to reschedule.")
		return
	}
	b.reply(chatID, fmt.Sprintf("Rescheduled %d missed review(s) to today.", count))
}

func (b *Bot) handleSessions(ctx context.Context, chatID int64) {
	completed, err := b.sessions.ListByStatus(ctx, chatID, models.StatusCompleted)
	if err != nil {
		log.Printf("Error listing sessions for %d: %v", chatID, err)
		b.reply(chatID, "Something went wrong, please try again.")
		return
	}
	if len(completed) == 0 {
		b.reply(chatID, "No completed sessions yet. Start one with /new!")
		return
	}

	var text strings.Builder
	var buttons [][]MenuButton
	text.WriteString("Completed sessions:\n")
	for i, s := range completed {
		star := ""
		if s.IsFavorite {
			star = " ⭐"
		}
		fmt.Fprintf(&text, "%d. %s%s\n", i+1, s.SessionName, star)
		buttons = append(buttons, []MenuButton{
			{Text: fmt.Sprintf("⭐ %d", i+1), CallbackData: "favorite:" + s.ID},
			{Text: fmt.Sprintf("📅 %d", i+1), CallbackData: "cycle:" + s.ID},
		})
	}
	msg := tgbotapi.NewMessage(chatID, text.String())
	msg.ReplyMarkup = createKeyboard(buttons)
	b.send(msg)
}

// handleStudy shows the content stored for a session so the user can review
// it before marking the review complete. Stage 0 is the content generated
// from the original upload.
func (b *Bot) handleStudy(ctx context.Context, chatID int64, sessionID string) {
	session, err := b.sessions.GetByID(ctx, sessionID)
	if err != nil || session.UserID != chatID {
		b.reply(chatID, actionUnavailable)
		return
	}
	content, err := b.contents.Get(ctx, sessionID, 0)
	if err != nil {
		b.reply(chatID, "No stored content for this session.")
		return
	}

	var text strings.Builder
	fmt.Fprintf(&text, "📖 %s\n\n%s\n", session.SessionName, content.Summary)
	if len(content.Flashcards) > 0 {
		text.WriteString("\nFlashcards:\n")
		for _, fc := range content.Flashcards {
			fmt.Fprintf(&text, "• Q: %s\n  A: %s\n", fc.Question, fc.Answer)
		}
	}
	if len(content.QuizQuestions) > 0 {
		text.WriteString("\nQuiz:\n")
		for _, q := range content.QuizQuestions {
			fmt.Fprintf(&text, "• %s\n", q.Question)
			for _, opt := range q.Options {
				fmt.Fprintf(&text, "   - %s\n", opt)
			}
		}
	}
	b.reply(chatID, text.String())
}

// handleFavorite flips a session's favorite flag from the /sessions keyboard
func (b *Bot) handleFavorite(ctx context.Context, chatID int64, sessionID string) {
	favorite, err := b.sessions.ToggleFavorite(ctx, sessionID, chatID)
	if err != nil {
		b.reply(chatID, actionUnavailable)
		return
	}
	if favorite {
		b.reply(chatID, "Marked as favorite. ⭐")
		return
	}
	b.reply(chatID, "Removed from favorites.")
}

// handleCycle shows a session's full review cycle from the /sessions keyboard
func (b *Bot) handleCycle(ctx context.Context, chatID int64, sessionID string) {
	session, err := b.sessions.GetByID(ctx, sessionID)
	if err != nil || session.UserID != chatID {
		b.reply(chatID, actionUnavailable)
		return
	}
	entries, err := b.reviews.SessionHistory(ctx, sessionID)
	if err != nil {
		log.Printf("Error listing cycle for session %s: %v", sessionID, err)
		b.reply(chatID, "Something went wrong, please try again.")
		return
	}
	if len(entries) == 0 {
		b.reply(chatID, "No review entries for this session yet.")
		return
	}

	var text strings.Builder
	fmt.Fprintf(&text, "Review cycle for %s:\n", session.SessionName)
	for _, e := range entries {
		icon := "⏳"
		switch e.Status {
		case models.ReviewCompleted:
			icon = "✅"
		case models.ReviewMissedRescheduled:
			icon = "🔁"
		}
		fmt.Fprintf(&text, "%s Stage %d, due %s\n", icon, e.ReviewStage, e.DueDate)
	}
	b.reply(chatID, text.String())
}

func (b *Bot) handleExport(ctx context.Context, chatID int64) {
	result, err := excel.ExportHistory(ctx, chatID)
	if err != nil {
		log.Printf("Error exporting history for %d: %v", chatID, err)
		b.reply(chatID, "Export failed, please try again.")
		return
	}

	doc := tgbotapi.NewDocument(chatID, tgbotapi.FilePath(result.FilePath))
	doc.Caption = fmt.Sprintf("%d sessions, %d review entries", result.SessionCount, result.ReviewCount)
	b.send(doc)
}

func (b *Bot) handleNotify(ctx context.Context, chatID int64, args string) {
	if args == "off" {
		if err := b.users.SetNotificationPrefs(ctx, chatID, false, 9); err != nil {
			b.reply(chatID, "Could not update your settings, use /start first.")
			return
		}
		b.reply(chatID, "Daily reminders disabled.")
		return
	}
	hour, err := strconv.Atoi(args)
	if err != nil || hour < 0 || hour > 23 {
		b.reply(chatID, "Usage: /notify <hour 0-23> or /notify off")
		return
	}
	if err := b.users.SetNotificationPrefs(ctx, chatID, true, hour); err != nil {
		b.reply(chatID, "Could not update your settings, use /start first.")
		return
	}
	b.reply(chatID, fmt.Sprintf("Daily reminders set for %02d:00.", hour))
}

// replyError maps core errors to user-facing text. Stale-state errors get
// the generic refresh message; anything else is reported as a failure.
func (b *Bot) replyError(chatID int64, err error) {
	var invalid *models.InvalidTransitionError
	if errors.As(err, &invalid) || errors.Is(err, models.ErrEntryNotPending) || errors.Is(err, models.ErrAlreadyCompleted) {
		b.reply(chatID, actionUnavailable)
		return
	}
	log.Printf("Error in chat %d: %v", chatID, err)
	b.reply(chatID, "Something went wrong, please try again.")
}
