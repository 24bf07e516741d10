// Package notify はチェックインイベントの外部通知を提供する。
// 通知先はカンファレンスごとに登録されたWebhook URLで、
// SSRF防止付きのHTTPクライアントを通じて送信される。
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

// userAgent はWebhook送信時のUser-Agentヘッダー値。
const userAgent = "Voxntry/1.0 Checkin Notifier"

// CheckinNotification はWebhookへ送信するチェックイン通知のペイロード。
type CheckinNotification struct {
	ConferenceID   string    `json:"conference_id"`
	ConferenceName string    `json:"conference_name"`
	RowNumber      int64     `json:"row_number"`
	AttendeeName   string    `json:"attendee_name"`
	StaffName      string    `json:"staff_name"`
	CheckedInAt    time.Time `json:"checked_in_at"`
}

// WebhookNotifier はチェックイン通知をWebhook URLへPOSTするクライアント。
type WebhookNotifier struct {
	httpClient *http.Client
	logger     *slog.Logger
}

// NewWebhookNotifier はWebhookNotifierの新しいインスタンスを生成する。
// httpClientにはSSRF防止付きのクライアントを渡すこと。
func NewWebhookNotifier(httpClient *http.Client, logger *slog.Logger) *WebhookNotifier {
	return &WebhookNotifier{
		httpClient: httpClient,
		logger:     logger,
	}
}

// NotifyCheckin はチェックイン通知をWebhook URLへ送信する。
// webhookURLが空の場合は通知先未設定として何もしない。
// 2xx以外のステータスはエラーとして扱う。
func (n *WebhookNotifier) NotifyCheckin(ctx context.Context, webhookURL string, notification CheckinNotification) error {
	if webhookURL == "" {
		return nil
	}

	payload, err := json.Marshal(notification)
	if err != nil {
		return fmt.Errorf("通知ペイロードの生成に失敗しました: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, webhookURL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("HTTPリクエストの作成に失敗しました: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", userAgent)

	resp, err := n.httpClient.Do(req)
	if err != nil {
		n.logger.Error("Webhook通知の送信に失敗しました",
			slog.String("error", err.Error()),
			slog.String("conference_id", notification.ConferenceID),
			slog.Int64("row_number", notification.RowNumber),
		)
		return fmt.Errorf("Webhook通知の送信に失敗しました: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		n.logger.Error("Webhook通知先がエラーステータスを返しました",
			slog.Int("http_status", resp.StatusCode),
			slog.String("conference_id", notification.ConferenceID),
			slog.Int64("row_number", notification.RowNumber),
		)
		return fmt.Errorf("Webhook通知先がステータス %d を返しました", resp.StatusCode)
	}

	n.logger.Info("Webhook通知を送信しました",
		slog.String("conference_id", notification.ConferenceID),
		slog.Int64("row_number", notification.RowNumber),
		slog.Int("http_status", resp.StatusCode),
	)
	return nil
}
