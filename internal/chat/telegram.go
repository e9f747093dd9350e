package chat

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/gustavoludtke/vagasbot/constants"
)

const downloadFailedText = "Não consegui baixar a imagem. Tente enviar novamente."

// botAPI is the part of *tgbotapi.BotAPI the session uses.
type botAPI interface {
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetFileDirectURL(fileID string) (string, error)
}

type TelegramConfig struct {
	Name        string
	Token       string
	PollTimeout int // long-poll seconds
	Debug       bool
}

// TelegramSession receives updates by long polling the Bot API. Approve and
// reject are offered as inline buttons.
type TelegramSession struct {
	name      string
	bot       botAPI
	updates   tgbotapi.UpdatesChannel
	http      *http.Client
	logger    *slog.Logger
	closeOnce sync.Once
}

func NewTelegramSession(cfg TelegramConfig, httpClient *http.Client, logger *slog.Logger) (*TelegramSession, error) {
	bot, err := tgbotapi.NewBotAPIWithClient(cfg.Token, tgbotapi.APIEndpoint, httpClientOrDefault(httpClient))
	if err != nil {
		return nil, fmt.Errorf("telegram login: %w", err)
	}
	bot.Debug = cfg.Debug
	if logger != nil {
		logger.Info("chat.telegram.ready", "bot", bot.Self.UserName)
	}
	return newTelegramSession(bot, cfg, httpClient, logger), nil
}

func newTelegramSession(bot botAPI, cfg TelegramConfig, httpClient *http.Client, logger *slog.Logger) *TelegramSession {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Name == "" {
		cfg.Name = "telegram"
	}
	u := tgbotapi.NewUpdate(0)
	u.Timeout = cfg.PollTimeout
	return &TelegramSession{
		name:    cfg.Name,
		bot:     bot,
		updates: bot.GetUpdatesChan(u),
		http:    httpClientOrDefault(httpClient),
		logger:  logger.With("session", cfg.Name),
	}
}

func httpClientOrDefault(c *http.Client) *http.Client {
	if c != nil {
		return c
	}
	return &http.Client{Timeout: 90 * time.Second}
}

func (s *TelegramSession) Name() string { return s.name }

func (s *TelegramSession) Next(ctx context.Context) (Event, error) {
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case upd, ok := <-s.updates:
			if !ok {
				return nil, ErrClosed
			}
			if ev, ok := s.convert(ctx, upd); ok {
				return ev, nil
			}
		}
	}
}

func (s *TelegramSession) convert(ctx context.Context, upd tgbotapi.Update) (Event, bool) {
	if cq := upd.CallbackQuery; cq != nil {
		return s.convertCallback(cq)
	}
	msg := upd.Message
	if msg == nil || msg.Chat == nil {
		return nil, false
	}
	h := Header{
		ID:     strconv.Itoa(upd.UpdateID),
		Origin: Origin{ChatID: msg.Chat.ID, MessageID: msg.MessageID},
		Sender: senderName(msg.From),
	}

	fileID := imageFileID(msg)
	if fileID == "" {
		return ParseCommand(msg.Text, h)
	}
	img, err := s.download(ctx, fileID)
	if err != nil {
		s.logger.Warn("chat.telegram.download_failed", "update_id", upd.UpdateID, "error", err)
		if rerr := s.Reply(ctx, h.Origin, Message{Text: downloadFailedText}); rerr != nil {
			s.logger.Warn("chat.telegram.reply_failed", "error", rerr)
		}
		return nil, false
	}
	return ImagePosted{Header: h, Image: img}, true
}

func (s *TelegramSession) convertCallback(cq *tgbotapi.CallbackQuery) (Event, bool) {
	if _, err := s.bot.Request(tgbotapi.NewCallback(cq.ID, "")); err != nil {
		s.logger.Debug("chat.telegram.callback_ack_failed", "error", err)
	}
	if cq.Message == nil || cq.Message.Chat == nil {
		return nil, false
	}
	h := Header{
		ID:     cq.ID,
		Origin: Origin{ChatID: cq.Message.Chat.ID, MessageID: cq.Message.MessageID},
		Sender: senderName(cq.From),
	}
	d, id, err := ParseCallback(cq.Data)
	if err != nil {
		return CommandError{Header: h, Text: cq.Data, Usage: UsageDecision}, true
	}
	return DecisionPressed{Header: h, Decision: d, JobID: id, Callback: true}, true
}

// imageFileID picks the largest photo size, or an image document.
func imageFileID(msg *tgbotapi.Message) string {
	if n := len(msg.Photo); n > 0 {
		return msg.Photo[n-1].FileID
	}
	if doc := msg.Document; doc != nil && strings.HasPrefix(doc.MimeType, "image/") {
		return doc.FileID
	}
	return ""
}

func senderName(u *tgbotapi.User) string {
	if u == nil {
		return ""
	}
	if u.UserName != "" {
		return "@" + u.UserName
	}
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

func (s *TelegramSession) download(ctx context.Context, fileID string) ([]byte, error) {
	url, err := s.bot.GetFileDirectURL(fileID)
	if err != nil {
		return nil, fmt.Errorf("resolve file: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := s.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download file: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		return nil, fmt.Errorf("download file: status %d", resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, constants.MaxImageBytes+1))
	if err != nil {
		return nil, fmt.Errorf("download file: %w", err)
	}
	if len(data) > constants.MaxImageBytes {
		return nil, fmt.Errorf("download file: larger than %d bytes", constants.MaxImageBytes)
	}
	return data, nil
}

// Done is a no-op: the Bot API confirms updates on the next poll.
func (s *TelegramSession) Done(Event) {}

func (s *TelegramSession) Reply(_ context.Context, to Origin, msg Message) error {
	var kb *tgbotapi.InlineKeyboardMarkup
	if len(msg.Actions) > 0 {
		buttons := make([]tgbotapi.InlineKeyboardButton, 0, len(msg.Actions))
		for _, a := range msg.Actions {
			buttons = append(buttons, tgbotapi.NewInlineKeyboardButtonData(a.Label, a.Data))
		}
		m := tgbotapi.NewInlineKeyboardMarkup(tgbotapi.NewInlineKeyboardRow(buttons...))
		kb = &m
	}

	if msg.Edit && to.MessageID != 0 {
		edit := tgbotapi.NewEditMessageText(to.ChatID, to.MessageID, msg.Text)
		edit.ReplyMarkup = kb
		if _, err := s.bot.Request(edit); err != nil {
			return fmt.Errorf("edit message: %w", err)
		}
		return nil
	}

	out := tgbotapi.NewMessage(to.ChatID, msg.Text)
	if kb != nil {
		out.ReplyMarkup = *kb
	}
	if _, err := s.bot.Send(out); err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	return nil
}

func (s *TelegramSession) Close() error {
	s.closeOnce.Do(s.bot.StopReceivingUpdates)
	return nil
}
