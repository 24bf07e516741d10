package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/dskst/voxntry-sub001/internal/middleware"
	"github.com/dskst/voxntry-sub001/internal/model"
)

// CheckinServiceInterface はチェックインハンドラーが必要とするサービスインターフェース。
type CheckinServiceInterface interface {
	// CheckIn は指定行の参加者をチェックイン済みにする。
	CheckIn(ctx context.Context, identity model.StaffIdentity, row int64) (*model.CheckinResult, error)
	// ListEvents は指定カンファレンスの監査記録を新しい順に返す。
	ListEvents(ctx context.Context, conferenceID string, limit int) ([]*model.CheckinEvent, error)
}

// CheckinHandler はチェックイン操作のHTTPハンドラー。
type CheckinHandler struct {
	service CheckinServiceInterface
}

// NewCheckinHandler はCheckinHandlerを生成する。
func NewCheckinHandler(service CheckinServiceInterface) *CheckinHandler {
	return &CheckinHandler{
		service: service,
	}
}

// checkinResponse はチェックイン成功時のAPIレスポンス。
type checkinResponse struct {
	Row          int64  `json:"row"`
	AttendeeName string `json:"attendee_name"`
	StaffName    string `json:"staff_name"`
	CheckedInAt  string `json:"checked_in_at"`
}

// checkinEventResponse は監査記録1件のAPIレスポンス。
type checkinEventResponse struct {
	ID           string `json:"id"`
	ConferenceID string `json:"conference_id"`
	Row          int64  `json:"row"`
	AttendeeName string `json:"attendee_name"`
	StaffName    string `json:"staff_name"`
	CheckedInAt  string `json:"checked_in_at"`
}

// listCheckinsResponse は監査記録一覧のAPIレスポンス。
type listCheckinsResponse struct {
	Checkins []checkinEventResponse `json:"checkins"`
	Total    int                    `json:"total"`
}

// CheckIn は指定行の参加者のチェックインを処理する。
// POST /api/attendees/{row}/checkin
func (h *CheckinHandler) CheckIn(w http.ResponseWriter, r *http.Request) {
	identity, err := middleware.IdentityFromContext(r.Context())
	if err != nil {
		middleware.WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	row, err := strconv.ParseInt(chi.URLParam(r, "row"), 10, 64)
	if err != nil || row <= 0 {
		middleware.WriteErrorResponse(w, http.StatusBadRequest,
			model.NewValidationError("行番号は正の整数を指定してください"))
		return
	}

	result, err := h.service.CheckIn(r.Context(), identity, row)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(checkinResponse{
		Row:          result.Row,
		AttendeeName: result.AttendeeName,
		StaffName:    result.StaffName,
		CheckedInAt:  result.CheckedInAt.Format(time.RFC3339),
	})
}

// ListCheckins は自カンファレンスのチェックイン監査記録を返す。
// 管理者権限が必要。limitクエリパラメータで件数を制限できる（省略時はサーバー既定値）。
// GET /api/checkins
func (h *CheckinHandler) ListCheckins(w http.ResponseWriter, r *http.Request) {
	identity, err := middleware.IdentityFromContext(r.Context())
	if err != nil {
		middleware.WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	limit := 0
	if limitParam := r.URL.Query().Get("limit"); limitParam != "" {
		limit, err = strconv.Atoi(limitParam)
		if err != nil || limit <= 0 {
			middleware.WriteErrorResponse(w, http.StatusBadRequest,
				model.NewValidationError("limitは正の整数を指定してください"))
			return
		}
	}

	events, err := h.service.ListEvents(r.Context(), identity.ConferenceID, limit)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	resp := listCheckinsResponse{
		Checkins: make([]checkinEventResponse, 0, len(events)),
		Total:    len(events),
	}
	for _, event := range events {
		resp.Checkins = append(resp.Checkins, checkinEventResponse{
			ID:           event.ID,
			ConferenceID: event.ConferenceID,
			Row:          event.Row,
			AttendeeName: event.AttendeeName,
			StaffName:    event.StaffName,
			CheckedInAt:  event.CheckedInAt.Format(time.RFC3339),
		})
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}
