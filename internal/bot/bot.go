package bot

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"medportal/internal/domain"
	"medportal/internal/service/telegram"
	"medportal/internal/session"
	"medportal/internal/usecase"
	"medportal/pkg/xerrors"
)

// API is the slice of the Telegram client the bot drives.
type API interface {
	GetUpdates(ctx context.Context, offset int64, timeoutSec int) ([]telegram.Update, error)
	SendMessage(ctx context.Context, chatID int64, text string, keyboard *telegram.InlineKeyboardMarkup) error
	AnswerCallbackQuery(ctx context.Context, callbackID, text string) error
}

type Bot struct {
	api      API
	sessions session.Store
	verify   *usecase.VerificationUsecase
	booking  *usecase.BookingUsecase
	contact  *usecase.ContactUsecase
	log      *zap.SugaredLogger
}

func New(api API, sessions session.Store, verify *usecase.VerificationUsecase, booking *usecase.BookingUsecase, contact *usecase.ContactUsecase, logger *zap.SugaredLogger) *Bot {
	return &Bot{
		api:      api,
		sessions: sessions,
		verify:   verify,
		booking:  booking,
		contact:  contact,
		log:      logger,
	}
}

// Run long-polls for updates until the context is cancelled.
func (b *Bot) Run(ctx context.Context) {
	var offset int64
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		updates, err := b.api.GetUpdates(ctx, offset, 60)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			b.log.Warnw("getUpdates failed", "error", err)
			time.Sleep(3 * time.Second)
			continue
		}

		for _, upd := range updates {
			offset = upd.UpdateID + 1
			b.HandleUpdate(ctx, upd)
		}
	}
}

// HandleUpdate advances one chat's workflow by one step.
func (b *Bot) HandleUpdate(ctx context.Context, upd telegram.Update) {
	switch {
	case upd.CallbackQuery != nil:
		b.handleCallback(ctx, upd.CallbackQuery)
	case upd.Message != nil:
		b.handleMessage(ctx, upd.Message)
	}
}

func (b *Bot) handleMessage(ctx context.Context, msg *telegram.Message) {
	chatID := msg.Chat.ID
	text := strings.TrimSpace(msg.Text)

	switch text {
	case "/start":
		b.startMenu(ctx, chatID)
		return
	case "/cancel":
		if err := b.sessions.Drop(ctx, chatID); err != nil {
			b.log.Warnw("drop session failed", "chat_id", chatID, "error", err)
		}
		b.reply(ctx, chatID, "Okay, cancelled. Send /start to begin again.", nil)
		return
	}

	sess, err := b.sessions.Load(ctx, chatID)
	if err != nil {
		b.log.Errorw("load session failed", "chat_id", chatID, "error", err)
		b.reply(ctx, chatID, "Something went wrong, please try again.", nil)
		return
	}

	switch sess.Step {
	case domain.StepAwaitEmail:
		b.onEmail(ctx, sess, text)
	case domain.StepAwaitOTP:
		b.onCode(ctx, sess, text)
	case domain.StepAwaitMessage:
		b.onDoctorMessage(ctx, sess, text)
	case domain.StepAwaitDetails:
		b.onBookingDetails(ctx, sess, text)
	default:
		b.reply(ctx, chatID, "Send /start to see what I can do.", nil)
	}
}

func (b *Bot) handleCallback(ctx context.Context, cb *telegram.CallbackQuery) {
	if cb.Message == nil {
		return
	}
	chatID := cb.Message.Chat.ID

	if err := b.api.AnswerCallbackQuery(ctx, cb.ID, ""); err != nil {
		b.log.Warnw("answer callback failed", "chat_id", chatID, "error", err)
	}

	sess, err := b.sessions.Load(ctx, chatID)
	if err != nil {
		b.log.Errorw("load session failed", "chat_id", chatID, "error", err)
		return
	}

	switch {
	case cb.Data == "contact" || cb.Data == "book":
		intent := domain.IntentContactDoctor
		if cb.Data == "book" {
			intent = domain.IntentBookAppointment
		}
		sess.Intent = intent
		sess.Step = domain.StepAwaitEmail
		b.saveSession(ctx, sess)
		b.reply(ctx, chatID, "Please enter the email address on your patient account.", nil)

	case strings.HasPrefix(cb.Data, "date:"):
		if sess.Step != domain.StepAwaitDate {
			return
		}
		b.onDatePicked(ctx, sess, strings.TrimPrefix(cb.Data, "date:"))

	case strings.HasPrefix(cb.Data, "slot:"):
		if sess.Step != domain.StepAwaitSlot {
			return
		}
		sess.SelectedSlot = strings.TrimPrefix(cb.Data, "slot:")
		sess.Step = domain.StepAwaitDetails
		b.saveSession(ctx, sess)
		b.reply(ctx, chatID,
			"Almost done. Describe your visit like this:\n\nReason: <why you need the appointment>\nUrgency: LOW, MEDIUM or HIGH",
			nil)
	}
}

func (b *Bot) startMenu(ctx context.Context, chatID int64) {
	if err := b.sessions.Drop(ctx, chatID); err != nil {
		b.log.Warnw("drop session failed", "chat_id", chatID, "error", err)
	}
	keyboard := &telegram.InlineKeyboardMarkup{
		InlineKeyboard: [][]telegram.InlineKeyboardButton{
			{{Text: "Contact Doctor", CallbackData: "contact"}},
			{{Text: "Book Appointment", CallbackData: "book"}},
		},
	}
	b.reply(ctx, chatID, "Welcome to the patient portal. What would you like to do?", keyboard)
}

func (b *Bot) onEmail(ctx context.Context, sess *domain.WorkflowSession, emailAddr string) {
	var err error
	if sess.Intent == domain.IntentBookAppointment {
		err = b.verify.BeginBooking(ctx, emailAddr, sess.ChatID)
	} else {
		err = b.verify.BeginContact(ctx, emailAddr, sess.ChatID)
	}

	switch {
	case err == nil:
		sess.Email = emailAddr
		sess.Step = domain.StepAwaitOTP
		b.saveSession(ctx, sess)
		b.reply(ctx, sess.ChatID, "I sent a 6-digit code to your email. Enter it here to continue.", nil)
	case errors.Is(err, xerrors.ErrInvalidEmailFormat):
		b.reply(ctx, sess.ChatID, "That doesn't look like an email address. Please try again.", nil)
	case errors.Is(err, xerrors.ErrPatientNotFound):
		b.reply(ctx, sess.ChatID, "No patient account uses that email. Please check and try again.", nil)
	case errors.Is(err, xerrors.ErrNoDoctorAssigned):
		b.reply(ctx, sess.ChatID, "Your account has no doctor assigned yet. Please contact the clinic first.", nil)
	case errors.Is(err, xerrors.ErrTooManyOTPRequests):
		b.reply(ctx, sess.ChatID, "Too many codes requested. Please wait a little before trying again.", nil)
	case errors.Is(err, xerrors.ErrEmailDeliveryFailed):
		b.reply(ctx, sess.ChatID, "I couldn't send the code right now. Please try again in a moment.", nil)
	default:
		b.log.Errorw("begin channel failed", "chat_id", sess.ChatID, "error", err)
		b.reply(ctx, sess.ChatID, "Something went wrong, please try again.", nil)
	}
}

func (b *Bot) onCode(ctx context.Context, sess *domain.WorkflowSession, code string) {
	result, err := b.verify.VerifyCode(ctx, usecase.ChatSubject(sess.ChatID), code)
	switch {
	case err == nil:
	case errors.Is(err, xerrors.ErrInvalidOTP):
		b.reply(ctx, sess.ChatID, "That code is not right. Please check your email and try again.", nil)
		return
	case errors.Is(err, xerrors.ErrExpiredOTP), errors.Is(err, xerrors.ErrOTPNotFound):
		b.sessions.Drop(ctx, sess.ChatID)
		b.reply(ctx, sess.ChatID, "That code has expired. Send /start to begin again.", nil)
		return
	default:
		b.log.Errorw("verify code failed", "chat_id", sess.ChatID, "error", err)
		b.reply(ctx, sess.ChatID, "Something went wrong, please try again.", nil)
		return
	}

	if result.Channel != nil {
		sess.PatientID = result.Channel.PatientID
		sess.DoctorID = result.Channel.DoctorID
	}

	if sess.Intent == domain.IntentContactDoctor {
		sess.Step = domain.StepAwaitMessage
		b.saveSession(ctx, sess)
		b.reply(ctx, sess.ChatID, "You're verified. Type the message you'd like to send to your doctor.", nil)
		return
	}

	sess.Step = domain.StepAwaitDate
	b.saveSession(ctx, sess)
	b.reply(ctx, sess.ChatID, "You're verified. Pick a date for your appointment:", b.dateKeyboard())
}

func (b *Bot) onDoctorMessage(ctx context.Context, sess *domain.WorkflowSession, text string) {
	err := b.contact.SendMessage(ctx, sess.PatientID, text)
	if err != nil {
		b.log.Errorw("contact message failed", "chat_id", sess.ChatID, "error", err)
		b.reply(ctx, sess.ChatID, "I couldn't deliver your message right now. Please try again.", nil)
		return
	}
	b.sessions.Drop(ctx, sess.ChatID)
	b.reply(ctx, sess.ChatID, "Your message was sent to your doctor. They will get back to you soon.", nil)
}

func (b *Bot) onDatePicked(ctx context.Context, sess *domain.WorkflowSession, date string) {
	slots, err := b.booking.AvailableSlots(ctx, sess.DoctorID, date)
	if err != nil {
		b.log.Errorw("available slots failed", "chat_id", sess.ChatID, "error", err)
		b.reply(ctx, sess.ChatID, "Something went wrong, please pick a date again.", b.dateKeyboard())
		return
	}
	if len(slots) == 0 {
		b.reply(ctx, sess.ChatID, "That day is fully booked. Please pick another date:", b.dateKeyboard())
		return
	}

	sess.SelectedDate = date
	sess.Step = domain.StepAwaitSlot
	b.saveSession(ctx, sess)
	b.reply(ctx, sess.ChatID, "Available times on "+date+":", slotKeyboard(slots))
}

func (b *Bot) onBookingDetails(ctx context.Context, sess *domain.WorkflowSession, text string) {
	reason, urgency := ParseDetails(text)

	appt, err := b.booking.Book(ctx, usecase.BookingRequest{
		PatientID: sess.PatientID,
		DoctorID:  sess.DoctorID,
		Date:      sess.SelectedDate,
		Time:      sess.SelectedSlot,
		Reason:    reason,
		Urgency:   urgency,
	})
	switch {
	case err == nil:
		b.sessions.Drop(ctx, sess.ChatID)
		b.reply(ctx, sess.ChatID,
			"Your appointment is requested for "+appt.Date+" at "+domain.FormatSlot12h(appt.Time)+
				". You'll get an email once the doctor confirms.", nil)
	case errors.Is(err, xerrors.ErrSlotTaken):
		sess.Step = domain.StepAwaitSlot
		b.saveSession(ctx, sess)
		slots, slotsErr := b.booking.AvailableSlots(ctx, sess.DoctorID, sess.SelectedDate)
		if slotsErr != nil || len(slots) == 0 {
			sess.Step = domain.StepAwaitDate
			b.saveSession(ctx, sess)
			b.reply(ctx, sess.ChatID, "Sorry, that time was just taken and the day filled up. Pick another date:", b.dateKeyboard())
			return
		}
		b.reply(ctx, sess.ChatID, "Sorry, that time was just taken. Here's what's still free:", slotKeyboard(slots))
	default:
		b.log.Errorw("booking failed", "chat_id", sess.ChatID, "error", err)
		b.reply(ctx, sess.ChatID, "I couldn't book that. Please try again.", nil)
	}
}

func (b *Bot) dateKeyboard() *telegram.InlineKeyboardMarkup {
	dates := b.booking.BookableDates()
	rows := make([][]telegram.InlineKeyboardButton, 0, len(dates))
	for _, d := range dates {
		rows = append(rows, []telegram.InlineKeyboardButton{
			{Text: d, CallbackData: "date:" + d},
		})
	}
	return &telegram.InlineKeyboardMarkup{InlineKeyboard: rows}
}

// slotKeyboard lays out free times two per row in 12-hour form.
func slotKeyboard(slots []string) *telegram.InlineKeyboardMarkup {
	var rows [][]telegram.InlineKeyboardButton
	for i := 0; i < len(slots); i += 2 {
		row := []telegram.InlineKeyboardButton{
			{Text: domain.FormatSlot12h(slots[i]), CallbackData: "slot:" + slots[i]},
		}
		if i+1 < len(slots) {
			row = append(row, telegram.InlineKeyboardButton{
				Text: domain.FormatSlot12h(slots[i+1]), CallbackData: "slot:" + slots[i+1],
			})
		}
		rows = append(rows, row)
	}
	return &telegram.InlineKeyboardMarkup{InlineKeyboard: rows}
}

// ParseDetails extracts "Reason:" and "Urgency:" lines. Free-form
// text becomes the reason with medium urgency; an unrecognized
// urgency also falls back to medium.
func ParseDetails(text string) (string, domain.Urgency) {
	reason := strings.TrimSpace(text)
	urgency := domain.UrgencyMedium

	var reasonLines []string
	structured := false
	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		lower := strings.ToLower(trimmed)
		switch {
		case strings.HasPrefix(lower, "reason:"):
			structured = true
			reasonLines = append(reasonLines, strings.TrimSpace(trimmed[len("reason:"):]))
		case strings.HasPrefix(lower, "urgency:"):
			structured = true
			if u, ok := domain.ParseUrgency(strings.ToUpper(strings.TrimSpace(trimmed[len("urgency:"):]))); ok {
				urgency = u
			}
		}
	}
	if structured && len(reasonLines) > 0 {
		reason = strings.Join(reasonLines, " ")
	}
	return reason, urgency
}

func (b *Bot) saveSession(ctx context.Context, sess *domain.WorkflowSession) {
	if err := b.sessions.Save(ctx, sess); err != nil {
		b.log.Errorw("save session failed", "chat_id", sess.ChatID, "error", err)
	}
}

func (b *Bot) reply(ctx context.Context, chatID int64, text string, keyboard *telegram.InlineKeyboardMarkup) {
	if err := b.api.SendMessage(ctx, chatID, text, keyboard); err != nil {
		b.log.Warnw("send message failed", "chat_id", chatID, "error", err)
	}
}
