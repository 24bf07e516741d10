package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/dskst/voxntry-sub001/internal/middleware"
	"github.com/dskst/voxntry-sub001/internal/model"
	"github.com/dskst/voxntry-sub001/internal/search"
)

// DirectoryServiceInterface は参加者一覧ハンドラーが必要とするサービスインターフェース。
type DirectoryServiceInterface interface {
	// Search はスナップショットを検索条件で絞り込んで返す。
	Search(ctx context.Context, conf *model.Conference, query string, cfg search.Config) ([]model.Attendee, error)
	// LastFetched はスナップショットを最後に取得した時刻を返す。
	LastFetched(conferenceID string) time.Time
}

// ConferenceGetter はカンファレンス参照のインターフェース。
// conference.Serviceの部分集合として定義する。
type ConferenceGetter interface {
	Get(ctx context.Context, conferenceID string) (*model.Conference, error)
}

// SearchMetrics は名簿検索のメトリクス記録インターフェース。
// metrics.MetricsCollectorの部分集合として定義する。
type SearchMetrics interface {
	RecordDirectorySearch(conferenceID string)
}

// AttendeeHandler は参加者名簿のHTTPハンドラー。
type AttendeeHandler struct {
	directory   DirectoryServiceInterface
	conferences ConferenceGetter
	metrics     SearchMetrics
}

// NewAttendeeHandler はAttendeeHandlerを生成する。
// metricsがnilの場合は検索メトリクスを記録しない。
func NewAttendeeHandler(directory DirectoryServiceInterface, conferences ConferenceGetter, metrics SearchMetrics) *AttendeeHandler {
	return &AttendeeHandler{
		directory:   directory,
		conferences: conferences,
		metrics:     metrics,
	}
}

// attendeeResponse は参加者1件のAPIレスポンス。
type attendeeResponse struct {
	Row              int64    `json:"row"`
	Name             string   `json:"name"`
	NameKana         string   `json:"name_kana"`
	Affiliation      string   `json:"affiliation"`
	Items            []string `json:"items"`
	CheckedIn        bool     `json:"checked_in"`
	CheckedInAt      string   `json:"checked_in_at"`
	StaffName        string   `json:"staff_name"`
	Attributes       string   `json:"attributes"`
	BodySize         string   `json:"body_size"`
	Novelties        []string `json:"novelties"`
	Memo             string   `json:"memo"`
	AttendsReception bool     `json:"attends_reception"`
}

// listAttendeesResponse は参加者一覧のAPIレスポンス。
type listAttendeesResponse struct {
	Attendees []attendeeResponse `json:"attendees"`
	Total     int                `json:"total"`
	FetchedAt string             `json:"fetched_at"`
}

// ListAttendees は自カンファレンスの参加者一覧を返す。
// クエリパラメータ q で絞り込み、fields で検索対象フィールド、
// normalize で表記ゆれ吸収の有無を指定できる。
// GET /api/attendees
func (h *AttendeeHandler) ListAttendees(w http.ResponseWriter, r *http.Request) {
	identity, err := middleware.IdentityFromContext(r.Context())
	if err != nil {
		middleware.WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	conf, err := h.conferences.Get(r.Context(), identity.ConferenceID)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	if !conf.Active {
		middleware.WriteErrorResponse(w, http.StatusNotFound, model.NewConferenceNotFoundError(identity.ConferenceID))
		return
	}

	cfg, apiErr := searchConfigFromQuery(r.URL.Query())
	if apiErr != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, apiErr)
		return
	}

	attendees, err := h.directory.Search(r.Context(), conf, r.URL.Query().Get("q"), cfg)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	if h.metrics != nil {
		h.metrics.RecordDirectorySearch(identity.ConferenceID)
	}

	resp := listAttendeesResponse{
		Attendees: make([]attendeeResponse, 0, len(attendees)),
		Total:     len(attendees),
	}
	for i := range attendees {
		resp.Attendees = append(resp.Attendees, toAttendeeResponse(&attendees[i]))
	}
	if fetchedAt := h.directory.LastFetched(identity.ConferenceID); !fetchedAt.IsZero() {
		resp.FetchedAt = fetchedAt.Format(time.RFC3339)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// SetupAttendeeRoutes は参加者名簿関連のルーティングを設定したchi.Routerを返す。
func SetupAttendeeRoutes(directory DirectoryServiceInterface, conferences ConferenceGetter, metrics SearchMetrics) http.Handler {
	r := chi.NewRouter()
	h := NewAttendeeHandler(directory, conferences, metrics)

	r.Get("/api/attendees", h.ListAttendees)

	return r
}

// --- ヘルパー関数 ---

// searchConfigFromQuery はクエリパラメータから検索設定を組み立てる。
// fields は未知のフィールド名を含む場合にエラーを返す。
// normalize は省略時true。
func searchConfigFromQuery(query url.Values) (search.Config, *model.APIError) {
	cfg := search.DefaultConfig()

	if fieldsParam := query.Get("fields"); fieldsParam != "" {
		var fields []search.Field
		for _, raw := range strings.Split(fieldsParam, ",") {
			f := search.Field(strings.TrimSpace(raw))
			if !search.KnownField(f) {
				return search.Config{}, model.NewInvalidSearchFieldError(string(f))
			}
			fields = append(fields, f)
		}
		cfg.Fields = fields
	}

	if normalizeParam := query.Get("normalize"); normalizeParam != "" {
		normalize, err := strconv.ParseBool(normalizeParam)
		if err != nil {
			return search.Config{}, model.NewValidationError("normalizeはtrueまたはfalseを指定してください")
		}
		cfg.Normalize = normalize
	}

	return cfg, nil
}

// toAttendeeResponse はmodel.AttendeeからAPIレスポンスに変換する。
func toAttendeeResponse(a *model.Attendee) attendeeResponse {
	return attendeeResponse{
		Row:              a.Row,
		Name:             a.Name,
		NameKana:         a.NameKana,
		Affiliation:      a.Affiliation,
		Items:            a.Items,
		CheckedIn:        a.CheckedIn,
		CheckedInAt:      a.CheckedInAt,
		StaffName:        a.StaffName,
		Attributes:       a.Attributes,
		BodySize:         a.BodySize,
		Novelties:        a.Novelties,
		Memo:             a.Memo,
		AttendsReception: a.AttendsReception,
	}
}

// handleServiceError はサービス層から返されたエラーをHTTPレスポンスへ変換する。
// APIError以外のエラーは詳細を漏らさず、ログにのみ記録して500として扱う。
func handleServiceError(w http.ResponseWriter, err error) {
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		slog.Error("internal server error", slog.String("error", err.Error()))
	}
	middleware.WriteAPIError(w, err)
}
