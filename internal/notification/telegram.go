package notification

import (
	"fmt"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/olegiv/sniper-tuner-go/internal/ai"
	internalerrors "github.com/olegiv/sniper-tuner-go/internal/errors"
	"github.com/olegiv/sniper-tuner-go/internal/recommend"
)

const (
	maxMessageLength = 4096
	// minMessageInterval is the minimum time between messages to the same channel
	// to avoid Telegram rate limits
	minMessageInterval = 1 * time.Second
	// maxRetries is the maximum number of retry attempts for sending messages
	maxRetries = 3
	// baseRetryDelay is the initial delay between retries (doubles each attempt)
	baseRetryDelay = 2 * time.Second
	// maxListedRecommendations caps how many recommendations go into the message
	maxListedRecommendations = 5
)

// TelegramClient handles Telegram notifications
type TelegramClient struct {
	bot             *tgbotapi.BotAPI
	archiveChannel  int64
	alertsChannel   int64
	lastMessageTime time.Time // tracks last message for rate limiting
}

// Report bundles everything a tune notification carries.
// Narration and Stats are nil when the LLM pass is disabled.
type Report struct {
	Vehicle         string
	Source          string
	Narration       *ai.Narration
	Stats           *ai.Stats
	Recommendations []recommend.Recommendation
}

// NewTelegramClient creates a new Telegram client
func NewTelegramClient(botToken string, archiveChannel, alertsChannel int64) (*TelegramClient, error) {
	bot, err := tgbotapi.NewBotAPI(botToken)
	if err != nil {
		// Sanitize error to prevent bot token from appearing in error messages
		return nil, internalerrors.Wrapf(err, "failed to create Telegram bot")
	}

	return &TelegramClient{
		bot:            bot,
		archiveChannel: archiveChannel,
		alertsChannel:  alertsChannel,
	}, nil
}

// SendTuneReport sends the tuning report to Telegram channels
func (t *TelegramClient) SendTuneReport(report *Report) error {
	message := t.formatMessage(report)

	// Send to archive channel (always)
	if err := t.sendToChannel(t.archiveChannel, message); err != nil {
		return fmt.Errorf("failed to send to archive channel: %w", err)
	}

	// Send to alerts channel if configured and the verdict warrants it
	if t.alertsChannel != 0 && shouldAlert(report) {
		if err := t.sendToChannel(t.alertsChannel, message); err != nil {
			return fmt.Errorf("failed to send to alerts channel: %w", err)
		}
	}

	return nil
}

// shouldAlert decides whether the report belongs on the alerts channel.
// Without a narration verdict, any priority 1-3 recommendation qualifies.
func shouldAlert(report *Report) bool {
	if report.Narration != nil {
		return ai.ShouldTriggerAlert(report.Narration.Verdict)
	}
	for _, rec := range report.Recommendations {
		if rec.Priority <= 3 {
			return true
		}
	}
	return false
}

// formatMessage formats the tune report into a Telegram message
func (t *TelegramClient) formatMessage(report *Report) string {

	const formattedListTemplate = "%d\\. %s\n"

	var msg strings.Builder

	// Header
	msg.WriteString("🏁 *Sniper Tune Report*\n")
	msg.WriteString(fmt.Sprintf("🚗 Vehicle\\: %s\n", escapeMarkdown(report.Vehicle)))
	msg.WriteString(fmt.Sprintf("📄 Datalog\\: %s\n", escapeMarkdown(report.Source)))
	msg.WriteString(fmt.Sprintf("📅 Date\\: %s\n", escapeMarkdown(time.Now().Format("2006-01-02 15:04:05"))))
	if report.Narration != nil {
		msg.WriteString(fmt.Sprintf("%s *Verdict\\:* %s\n", ai.GetVerdictEmoji(report.Narration.Verdict),
			escapeMarkdown(report.Narration.Verdict)))
	}
	msg.WriteString("\n")

	// Summary
	if report.Narration != nil {
		msg.WriteString("📊 *Summary*\n")
		msg.WriteString(escapeMarkdown(report.Narration.Summary))
		msg.WriteString("\n\n")
	}

	// Recommendations
	if len(report.Recommendations) > 0 {
		msg.WriteString(fmt.Sprintf("💡 *Recommendations* \\(%d\\)\n", len(report.Recommendations)))
		for i, rec := range report.Recommendations {
			if i == maxListedRecommendations {
				msg.WriteString(escapeMarkdown(fmt.Sprintf("... and %d more in the full report", len(report.Recommendations)-i)))
				msg.WriteString("\n")
				break
			}
			line := fmt.Sprintf("[%s] %s: %s", rec.Category, rec.Parameter, rec.Recommended)
			msg.WriteString(fmt.Sprintf(formattedListTemplate, i+1, escapeMarkdown(line)))
		}
		msg.WriteString("\n")
	}

	// Cautions
	if report.Narration != nil && len(report.Narration.Cautions) > 0 {
		msg.WriteString(fmt.Sprintf("🔴 *Cautions* \\(%d\\)\n", len(report.Narration.Cautions)))
		for i, caution := range report.Narration.Cautions {
			msg.WriteString(fmt.Sprintf(formattedListTemplate, i+1, escapeMarkdown(caution)))
		}
		msg.WriteString("\n")
	}

	// Execution stats
	if report.Stats != nil {
		msg.WriteString("📋 *Execution Stats*\n")
		msg.WriteString(fmt.Sprintf("• Cost\\: %s\n", escapeMarkdown(fmt.Sprintf("$%.4f", report.Stats.CostUSD))))
		msg.WriteString(fmt.Sprintf("• Duration\\: %s\n", escapeMarkdown(fmt.Sprintf("%.2fs", report.Stats.DurationSeconds))))
		if report.Stats.CacheReadTokens > 0 || report.Stats.CacheCreationTokens > 0 {
			msg.WriteString(fmt.Sprintf("• Cache Read\\: %d tokens\n", report.Stats.CacheReadTokens))
		}
	}

	return msg.String()
}

// sendToChannel sends a message to a Telegram channel with rate limiting
func (t *TelegramClient) sendToChannel(channelID int64, message string) error {
	// Split message if it exceeds Telegram's limit
	messages := t.splitMessage(message)

	for _, msg := range messages {
		t.waitForRateLimit()

		msgConfig := tgbotapi.NewMessage(channelID, msg)
		msgConfig.ParseMode = "MarkdownV2"

		// Send with exponential backoff retry
		if err := t.sendWithRetry(msgConfig); err != nil {
			return err
		}

		// Update last message time for rate limiting
		t.lastMessageTime = time.Now()
	}

	return nil
}

// waitForRateLimit ensures minimum interval between messages
func (t *TelegramClient) waitForRateLimit() {
	if t.lastMessageTime.IsZero() {
		return
	}

	elapsed := time.Since(t.lastMessageTime)
	if elapsed < minMessageInterval {
		time.Sleep(minMessageInterval - elapsed)
	}
}

// sendWithRetry sends a message with exponential backoff retry
func (t *TelegramClient) sendWithRetry(msgConfig tgbotapi.MessageConfig) error {
	var lastErr error

	for attempt := 1; attempt <= maxRetries; attempt++ {
		_, err := t.bot.Send(msgConfig)
		if err == nil {
			return nil
		}

		lastErr = err

		// Check if this is a rate limit error (429)
		if isRateLimitError(err) {
			// Wait longer for rate limit errors
			retryAfter := extractRetryAfter(err)
			if retryAfter > 0 {
				time.Sleep(time.Duration(retryAfter) * time.Second)
				continue
			}
		}

		// Exponential backoff for other errors
		if attempt < maxRetries {
			delay := baseRetryDelay * time.Duration(1<<(attempt-1)) // 2s, 4s, 8s...
			time.Sleep(delay)
		}
	}

	// Sanitize error to prevent credentials from appearing in error messages
	return internalerrors.Wrapf(lastErr, "failed to send message after %d retries", maxRetries)
}

// isRateLimitError checks if the error is a Telegram rate limit error (429)
func isRateLimitError(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	return strings.Contains(errStr, "429") || strings.Contains(errStr, "Too Many Requests")
}

// extractRetryAfter extracts the retry_after value from a rate limit error
func extractRetryAfter(err error) int {
	if err == nil {
		return 0
	}

	// Telegram API errors typically include retry_after in the message
	// Example: "Too Many Requests: retry after 30"
	errStr := err.Error()

	// Simple extraction - look for "retry after X" pattern
	if idx := strings.Index(strings.ToLower(errStr), "retry after "); idx != -1 {
		remaining := errStr[idx+len("retry after "):]
		var seconds int
		if _, err := fmt.Sscanf(remaining, "%d", &seconds); err == nil {
			return seconds
		}
	}

	// Default to a conservative wait time if we can't extract the value
	return 30
}

// splitMessage splits a long message into multiple messages
func (t *TelegramClient) splitMessage(message string) []string {
	if len(message) <= maxMessageLength {
		return []string{message}
	}

	var messages []string
	lines := strings.Split(message, "\n")
	var currentMsg strings.Builder

	for _, line := range lines {
		// If adding this line would exceed the limit
		if currentMsg.Len()+len(line)+1 > maxMessageLength {
			// Save current message
			if currentMsg.Len() > 0 {
				messages = append(messages, currentMsg.String())
				currentMsg.Reset()
			}

			// If a single line is too long, split it
			if len(line) > maxMessageLength {
				for i := 0; i < len(line); i += maxMessageLength {
					end := i + maxMessageLength
					if end > len(line) {
						end = len(line)
					}
					messages = append(messages, line[i:end])
				}
				continue
			}
		}

		currentMsg.WriteString(line)
		currentMsg.WriteString("\n")
	}

	// Add remaining content
	if currentMsg.Len() > 0 {
		messages = append(messages, currentMsg.String())
	}

	return messages
}

// escapeMarkdown escapes special characters for Telegram MarkdownV2
func escapeMarkdown(text string) string {
	// Characters that need to be escaped in MarkdownV2
	// See: https://core.telegram.org/bots/api#markdownv2-style
	specialChars := []string{
		"_", "*", "[", "]", "(", ")", "~", "`", ">", "#", "+", "-", "=", "|", "{", "}", ".", "!", ":",
	}

	result := text
	for _, char := range specialChars {
		result = strings.ReplaceAll(result, char, "\\"+char)
	}

	return result
}

// GetBotInfo returns information about the bot
func (t *TelegramClient) GetBotInfo() map[string]interface{} {
	return map[string]interface{}{
		"username":        t.bot.Self.UserName,
		"archive_channel": t.archiveChannel,
		"alerts_channel":  t.alertsChannel,
	}
}

// Close closes the Telegram client
func (t *TelegramClient) Close() error {
	t.bot.StopReceivingUpdates()
	return nil
}
