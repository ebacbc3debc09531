package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/modular-health/modular-health-backend/config"
	"github.com/modular-health/modular-health-backend/logger"
	"github.com/modular-health/modular-health-backend/store"
	"go.uber.org/zap"
)

// MaxPushBatchSize is the maximum number of messages per request (Expo limit).
const MaxPushBatchSize = 100

// PushService delivers push notifications to a user's registered devices.
type PushService interface {
	// SendToUser sends a push notification to all of a user's active tokens.
	SendToUser(ctx context.Context, userID uuid.UUID, notification *PushNotification) error

	// SendToToken sends directly to a specific token (for testing).
	SendToToken(ctx context.Context, token string, notification *PushNotification) error
}

// PushNotification represents a push notification payload.
type PushNotification struct {
	Title    string                 `json:"title"`
	Body     string                 `json:"body"`
	Data     map[string]interface{} `json:"data,omitempty"`
	Sound    string                 `json:"sound,omitempty"`
	Priority string                 `json:"priority,omitempty"`
	TTL      int                    `json:"ttl,omitempty"`
}

// expoMessage is the Expo push API message format.
type expoMessage struct {
	To       string                 `json:"to"`
	Title    string                 `json:"title,omitempty"`
	Body     string                 `json:"body,omitempty"`
	Data     map[string]interface{} `json:"data,omitempty"`
	Sound    string                 `json:"sound,omitempty"`
	Priority string                 `json:"priority,omitempty"`
	TTLSec   int                    `json:"ttl,omitempty"`
}

// expoResponse represents the Expo push API response.
type expoResponse struct {
	Data []expoTicket `json:"data"`
}

// expoTicket represents a single push ticket from Expo.
type expoTicket struct {
	Status  string            `json:"status"` // "ok" or "error"
	ID      string            `json:"id,omitempty"`
	Message string            `json:"message,omitempty"`
	Details *expoErrorDetails `json:"details,omitempty"`
}

// expoErrorDetails contains details about push errors.
type expoErrorDetails struct {
	Error string `json:"error,omitempty"` // "DeviceNotRegistered", "InvalidCredentials", etc.
}

// noopPushService drops all notifications. Used when push delivery is
// disabled in config; reminder history still records the occurrences.
type noopPushService struct {
	logger *zap.SugaredLogger
}

// NewNoopPushService returns a PushService that silently discards messages.
func NewNoopPushService() PushService {
	return &noopPushService{logger: logger.GetLogger().Named("push")}
}

func (s *noopPushService) SendToUser(_ context.Context, userID uuid.UUID, _ *PushNotification) error {
	s.logger.Debugw("Push delivery disabled, dropping notification", "userID", userID)
	return nil
}

func (s *noopPushService) SendToToken(_ context.Context, _ string, _ *PushNotification) error {
	return nil
}

// expoPushService implements PushService against the Expo push HTTP API.
type expoPushService struct {
	pushTokenStore store.PushTokenStore
	httpClient     *http.Client
	apiURL         string
	logger         *zap.SugaredLogger
}

// NewExpoPushService creates a new Expo push notification service.
func NewExpoPushService(pts store.PushTokenStore, cfg config.PushConfig) PushService {
	return &expoPushService{
		pushTokenStore: pts,
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second,
		},
		apiURL: cfg.APIUrl,
		logger: logger.GetLogger().Named("push"),
	}
}

// SendToUser sends a push notification to all of a user's active tokens.
func (s *expoPushService) SendToUser(ctx context.Context, userID uuid.UUID, notification *PushNotification) error {
	tokens, err := s.pushTokenStore.GetActiveTokensForUser(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to get tokens for user %s: %w", userID, err)
	}

	if len(tokens) == 0 {
		// Not an error; the user just doesn't have push enabled.
		s.logger.Debugw("No active push tokens for user", "userID", userID)
		return nil
	}

	messages := make([]expoMessage, 0, len(tokens))
	for i := range tokens {
		messages = append(messages, s.buildMessage(tokens[i].Token, notification))
	}

	var firstErr error
	for i := 0; i < len(messages); i += MaxPushBatchSize {
		end := i + MaxPushBatchSize
		if end > len(messages) {
			end = len(messages)
		}
		if err := s.sendBatch(ctx, messages[i:end]); err != nil {
			s.logger.Errorw("Failed to send push notification batch",
				"batchStart", i,
				"batchEnd", end,
				"error", err)
			if firstErr == nil {
				firstErr = err
			}
			// Continue with other batches even if one fails.
		}
	}
	return firstErr
}

// SendToToken sends directly to a specific token.
func (s *expoPushService) SendToToken(ctx context.Context, token string, notification *PushNotification) error {
	return s.sendBatch(ctx, []expoMessage{s.buildMessage(token, notification)})
}

// buildMessage constructs an Expo message from our notification format.
func (s *expoPushService) buildMessage(token string, notification *PushNotification) expoMessage {
	msg := expoMessage{
		To:    token,
		Title: notification.Title,
		Body:  notification.Body,
		Data:  notification.Data,
	}

	if notification.Sound != "" {
		msg.Sound = notification.Sound
	} else {
		msg.Sound = "default"
	}

	if notification.Priority != "" {
		msg.Priority = notification.Priority
	} else {
		msg.Priority = "high"
	}

	if notification.TTL > 0 {
		msg.TTLSec = notification.TTL
	}

	return msg
}

// sendBatch sends a batch of messages to the Expo push API.
func (s *expoPushService) sendBatch(ctx context.Context, messages []expoMessage) error {
	if len(messages) == 0 {
		return nil
	}

	body, err := json.Marshal(messages)
	if err != nil {
		return fmt.Errorf("failed to marshal messages: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.apiURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send push notification: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		s.logger.Errorw("Push API returned non-OK status",
			"statusCode", resp.StatusCode,
			"response", string(respBody))
		return fmt.Errorf("push API returned status %d", resp.StatusCode)
	}

	var parsed expoResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		// The push was likely accepted; don't fail on an unparseable body.
		s.logger.Warnw("Failed to parse push API response", "error", err)
		return nil
	}

	s.processTickets(ctx, messages, parsed.Data)
	return nil
}

// processTickets handles the response tickets from Expo: invalidating tokens
// for unregistered devices and touching last-used on delivered ones.
func (s *expoPushService) processTickets(ctx context.Context, messages []expoMessage, tickets []expoTicket) {
	var okCount, errCount int
	for i, ticket := range tickets {
		if i >= len(messages) {
			break
		}

		token := messages[i].To

		switch ticket.Status {
		case "error":
			errCount++
			errorDetails := ""
			if ticket.Details != nil {
				errorDetails = ticket.Details.Error
			}
			s.logger.Warnw("Push notification failed",
				"token", logger.MaskSensitiveString(token, 8, 4),
				"message", ticket.Message,
				"errorDetails", errorDetails)

			if ticket.Details != nil && ticket.Details.Error == "DeviceNotRegistered" {
				if err := s.pushTokenStore.InvalidateToken(ctx, token); err != nil {
					s.logger.Errorw("Failed to invalidate token", "error", err)
				}
			}
		case "ok":
			okCount++
			if err := s.pushTokenStore.UpdateTokenLastUsed(ctx, token); err != nil {
				s.logger.Warnw("Failed to update token last used", "error", err)
			}
		default:
			s.logger.Warnw("Unexpected push ticket status",
				"token", logger.MaskSensitiveString(token, 8, 4),
				"status", ticket.Status)
		}
	}

	s.logger.Infow("Push notification batch processed",
		"total", len(tickets),
		"ok", okCount,
		"errors", errCount)
}
