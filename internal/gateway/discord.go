package gateway

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

// maxDiscordLen is Discord's limit for one message.
const maxDiscordLen = 2000

// DiscordGateway answers the same commands as the Telegram bot. Only messages
// starting with "/" are handled; everything else in a channel is ignored.
type DiscordGateway struct {
	Session *discordgo.Session
	Handler *Handler
	logger  *zap.Logger
}

func NewDiscordGateway(token string, handler *Handler, logger *zap.Logger) (*DiscordGateway, error) {
	s, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	s.Identify.Intents = discordgo.IntentsGuildMessages |
		discordgo.IntentsDirectMessages |
		discordgo.IntentMessageContent

	return &DiscordGateway{Session: s, Handler: handler, logger: logger}, nil
}

func (dg *DiscordGateway) Start(ctx context.Context) error {
	remove := dg.Session.AddHandler(func(s *discordgo.Session, m *discordgo.MessageCreate) {
		if m.Author == nil || (s.State != nil && s.State.User != nil && m.Author.ID == s.State.User.ID) {
			return
		}
		if !isCommand(m.Content) {
			return
		}

		dg.logger.Info("discord command", zap.String("from", m.Author.Username))
		reply := dg.Handler.Reply(ctx, m.Content)
		if err := dg.Send(m.ChannelID, reply); err != nil {
			dg.logger.Warn("discord send failed", zap.Error(err))
		}
	})
	defer remove()

	if err := dg.Session.Open(); err != nil {
		return fmt.Errorf("failed to open discord session: %w", err)
	}
	<-ctx.Done()
	return dg.Stop()
}

func (dg *DiscordGateway) Send(chatID string, text string) error {
	if chatID == "" {
		return fmt.Errorf("invalid channel ID: %q", chatID)
	}
	_, err := dg.Session.ChannelMessageSend(chatID, truncate(text, maxDiscordLen))
	return err
}

func (dg *DiscordGateway) Stop() error {
	return dg.Session.Close()
}
