package checkin

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/dskst/voxntry-sub001/internal/model"
	"github.com/dskst/voxntry-sub001/internal/notify"
)

// --- モック ---

type mockConferenceStore struct {
	getFn func(ctx context.Context, conferenceID string) (*model.Conference, error)
}

func (m *mockConferenceStore) Get(ctx context.Context, conferenceID string) (*model.Conference, error) {
	return m.getFn(ctx, conferenceID)
}

type mockDirectory struct {
	findByRowFn func(ctx context.Context, conf *model.Conference, row int64) (*model.Attendee, error)
	checkInFn   func(ctx context.Context, conf *model.Conference, row int64, staffName string, at time.Time) (bool, error)
}

func (m *mockDirectory) FindByRow(ctx context.Context, conf *model.Conference, row int64) (*model.Attendee, error) {
	return m.findByRowFn(ctx, conf, row)
}
func (m *mockDirectory) CheckIn(ctx context.Context, conf *model.Conference, row int64, staffName string, at time.Time) (bool, error) {
	if m.checkInFn != nil {
		return m.checkInFn(ctx, conf, row, staffName, at)
	}
	return true, nil
}

type mockEventRepo struct {
	recordFn func(ctx context.Context, event *model.CheckinEvent) error
	listFn   func(ctx context.Context, conferenceID string, limit int) ([]*model.CheckinEvent, error)
}

func (m *mockEventRepo) Record(ctx context.Context, event *model.CheckinEvent) error {
	if m.recordFn != nil {
		return m.recordFn(ctx, event)
	}
	return nil
}
func (m *mockEventRepo) ListByConference(ctx context.Context, conferenceID string, limit int) ([]*model.CheckinEvent, error) {
	if m.listFn != nil {
		return m.listFn(ctx, conferenceID, limit)
	}
	return nil, nil
}
func (m *mockEventRepo) DeleteOlderThan(ctx context.Context, before time.Time) (int64, error) {
	return 0, nil
}

type mockNotifier struct {
	notifications chan notify.CheckinNotification
}

func newMockNotifier() *mockNotifier {
	return &mockNotifier{notifications: make(chan notify.CheckinNotification, 1)}
}
func (m *mockNotifier) NotifyCheckin(ctx context.Context, webhookURL string, notification notify.CheckinNotification) error {
	m.notifications <- notification
	return nil
}

type mockCollector struct {
	mu        sync.Mutex
	successes []string
	failures  []string
}

func (m *mockCollector) RecordLoginSuccess(role string) {}
func (m *mockCollector) RecordLoginFailure()            {}
func (m *mockCollector) RecordTokenRejection()          {}
func (m *mockCollector) RecordCheckinSuccess(conferenceID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.successes = append(m.successes, conferenceID)
}
func (m *mockCollector) RecordCheckinFailure(conferenceID string, reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures = append(m.failures, conferenceID+":"+reason)
}
func (m *mockCollector) RecordDirectorySearch(conferenceID string)         {}
func (m *mockCollector) RecordSnapshotRefreshSuccess(conferenceID string)  {}
func (m *mockCollector) RecordSnapshotRefreshFailure(conferenceID string)  {}
func (m *mockCollector) RecordSheetLatency(duration time.Duration)         {}
func (m *mockCollector) RecordHTTPStatus(statusCode int)                   {}

func (m *mockCollector) lastFailure() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.failures) == 0 {
		return ""
	}
	return m.failures[len(m.failures)-1]
}

func activeConferenceStore(webhookURL string) *mockConferenceStore {
	return &mockConferenceStore{
		getFn: func(ctx context.Context, conferenceID string) (*model.Conference, error) {
			return &model.Conference{
				ID:         conferenceID,
				Name:       "テストカンファレンス2026",
				WebhookURL: webhookURL,
				Active:     true,
			}, nil
		},
	}
}

func uncheckedAttendeeDirectory() *mockDirectory {
	return &mockDirectory{
		findByRowFn: func(ctx context.Context, conf *model.Conference, row int64) (*model.Attendee, error) {
			return &model.Attendee{Row: row, Name: "山田太郎", CheckedIn: false}, nil
		},
	}
}

func staffIdentity() model.StaffIdentity {
	return model.StaffIdentity{
		ConferenceID: "conf-2026",
		StaffName:    "受付スタッフA",
		Role:         model.RoleStaff,
	}
}

// --- テスト ---

// TestService_CheckIn_Success はチェックイン成功の一連の流れを検証する。
func TestService_CheckIn_Success(t *testing.T) {
	var wroteStaff string
	var wroteRow int64
	directory := uncheckedAttendeeDirectory()
	directory.checkInFn = func(ctx context.Context, conf *model.Conference, row int64, staffName string, at time.Time) (bool, error) {
		wroteRow = row
		wroteStaff = staffName
		return true, nil
	}

	var recorded *model.CheckinEvent
	events := &mockEventRepo{
		recordFn: func(ctx context.Context, event *model.CheckinEvent) error {
			recorded = event
			return nil
		},
	}

	collector := &mockCollector{}
	svc := NewService(activeConferenceStore(""), directory, events, newMockNotifier(), collector, 0)

	result, err := svc.CheckIn(context.Background(), staffIdentity(), 42)
	if err != nil {
		t.Fatalf("CheckIn failed: %v", err)
	}

	if result.Row != 42 || result.AttendeeName != "山田太郎" || result.StaffName != "受付スタッフA" {
		t.Errorf("result = %+v", result)
	}
	if wroteRow != 42 || wroteStaff != "受付スタッフA" {
		t.Errorf("sheet write: row=%d staff=%q", wroteRow, wroteStaff)
	}

	if recorded == nil {
		t.Fatal("checkin event was not recorded")
	}
	if recorded.ID == "" {
		t.Error("event.ID should not be empty")
	}
	if recorded.ConferenceID != "conf-2026" || recorded.Row != 42 || recorded.AttendeeName != "山田太郎" {
		t.Errorf("event = %+v", recorded)
	}
	if !recorded.CheckedInAt.Equal(result.CheckedInAt) {
		t.Errorf("event.CheckedInAt = %v, want %v", recorded.CheckedInAt, result.CheckedInAt)
	}

	if len(collector.successes) != 1 || collector.successes[0] != "conf-2026" {
		t.Errorf("collector.successes = %v", collector.successes)
	}
}

// TestService_CheckIn_SendsWebhookNotification はWebhook設定時に通知が送信されることを検証する。
func TestService_CheckIn_SendsWebhookNotification(t *testing.T) {
	notifier := newMockNotifier()
	svc := NewService(activeConferenceStore("https://hooks.example.com/checkin"),
		uncheckedAttendeeDirectory(), &mockEventRepo{}, notifier, &mockCollector{}, 0)

	if _, err := svc.CheckIn(context.Background(), staffIdentity(), 42); err != nil {
		t.Fatalf("CheckIn failed: %v", err)
	}

	select {
	case n := <-notifier.notifications:
		if n.ConferenceID != "conf-2026" || n.RowNumber != 42 || n.AttendeeName != "山田太郎" {
			t.Errorf("notification = %+v", n)
		}
		if n.StaffName != "受付スタッフA" {
			t.Errorf("notification.StaffName = %q", n.StaffName)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("webhook notification was not sent")
	}
}

// TestService_CheckIn_NoWebhookURL_NoNotification はWebhook未設定時に通知しないことを検証する。
func TestService_CheckIn_NoWebhookURL_NoNotification(t *testing.T) {
	notifier := newMockNotifier()
	svc := NewService(activeConferenceStore(""),
		uncheckedAttendeeDirectory(), &mockEventRepo{}, notifier, &mockCollector{}, 0)

	if _, err := svc.CheckIn(context.Background(), staffIdentity(), 42); err != nil {
		t.Fatalf("CheckIn failed: %v", err)
	}

	select {
	case <-notifier.notifications:
		t.Fatal("notification should not be sent without webhook URL")
	case <-time.After(100 * time.Millisecond):
	}
}

// TestService_CheckIn_InactiveConference は無効化済みカンファレンスでエラーになることを検証する。
func TestService_CheckIn_InactiveConference(t *testing.T) {
	conferences := &mockConferenceStore{
		getFn: func(ctx context.Context, conferenceID string) (*model.Conference, error) {
			return &model.Conference{ID: conferenceID, Active: false}, nil
		},
	}
	svc := NewService(conferences, uncheckedAttendeeDirectory(), &mockEventRepo{}, newMockNotifier(), &mockCollector{}, 0)

	_, err := svc.CheckIn(context.Background(), staffIdentity(), 42)
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeConferenceNotFound {
		t.Errorf("expected conference not found error, got %v", err)
	}
}

// TestService_CheckIn_ConferenceLookupError はカンファレンス取得エラーがそのまま返ることを検証する。
func TestService_CheckIn_ConferenceLookupError(t *testing.T) {
	conferences := &mockConferenceStore{
		getFn: func(ctx context.Context, conferenceID string) (*model.Conference, error) {
			return nil, model.NewConferenceNotFoundError(conferenceID)
		},
	}
	svc := NewService(conferences, uncheckedAttendeeDirectory(), &mockEventRepo{}, newMockNotifier(), &mockCollector{}, 0)

	_, err := svc.CheckIn(context.Background(), staffIdentity(), 42)
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeConferenceNotFound {
		t.Errorf("expected conference not found error, got %v", err)
	}
}

// TestService_CheckIn_AttendeeNotFound は存在しない行でエラーと失敗メトリクスを検証する。
func TestService_CheckIn_AttendeeNotFound(t *testing.T) {
	directory := &mockDirectory{
		findByRowFn: func(ctx context.Context, conf *model.Conference, row int64) (*model.Attendee, error) {
			return nil, nil
		},
	}
	collector := &mockCollector{}
	svc := NewService(activeConferenceStore(""), directory, &mockEventRepo{}, newMockNotifier(), collector, 0)

	_, err := svc.CheckIn(context.Background(), staffIdentity(), 99)
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeAttendeeNotFound {
		t.Fatalf("expected attendee not found error, got %v", err)
	}
	if collector.lastFailure() != "conf-2026:not_found" {
		t.Errorf("lastFailure = %q, want conf-2026:not_found", collector.lastFailure())
	}
}

// TestService_CheckIn_AlreadyCheckedIn はチェックイン済みの参加者で409相当のエラーを検証する。
func TestService_CheckIn_AlreadyCheckedIn(t *testing.T) {
	directory := &mockDirectory{
		findByRowFn: func(ctx context.Context, conf *model.Conference, row int64) (*model.Attendee, error) {
			return &model.Attendee{Row: row, Name: "山田太郎", CheckedIn: true}, nil
		},
	}
	collector := &mockCollector{}
	svc := NewService(activeConferenceStore(""), directory, &mockEventRepo{}, newMockNotifier(), collector, 0)

	_, err := svc.CheckIn(context.Background(), staffIdentity(), 42)
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeAlreadyCheckedIn {
		t.Fatalf("expected already checked in error, got %v", err)
	}
	if collector.lastFailure() != "conf-2026:already_checked_in" {
		t.Errorf("lastFailure = %q", collector.lastFailure())
	}
}

// TestService_CheckIn_DirectoryError は名簿参照失敗でDIRECTORY_UNAVAILABLEになることを検証する。
func TestService_CheckIn_DirectoryError(t *testing.T) {
	directory := &mockDirectory{
		findByRowFn: func(ctx context.Context, conf *model.Conference, row int64) (*model.Attendee, error) {
			return nil, errors.New("sheets api down")
		},
	}
	collector := &mockCollector{}
	svc := NewService(activeConferenceStore(""), directory, &mockEventRepo{}, newMockNotifier(), collector, 0)

	_, err := svc.CheckIn(context.Background(), staffIdentity(), 42)
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeDirectoryUnavailable {
		t.Fatalf("expected directory unavailable error, got %v", err)
	}
	if collector.lastFailure() != "conf-2026:directory_error" {
		t.Errorf("lastFailure = %q", collector.lastFailure())
	}
}

// TestService_CheckIn_SheetWriteError はシート書き込み失敗でCHECKIN_FAILEDになることを検証する。
func TestService_CheckIn_SheetWriteError(t *testing.T) {
	directory := uncheckedAttendeeDirectory()
	directory.checkInFn = func(ctx context.Context, conf *model.Conference, row int64, staffName string, at time.Time) (bool, error) {
		return false, errors.New("write failed")
	}
	collector := &mockCollector{}
	svc := NewService(activeConferenceStore(""), directory, &mockEventRepo{}, newMockNotifier(), collector, 0)

	_, err := svc.CheckIn(context.Background(), staffIdentity(), 42)
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeCheckinFailed {
		t.Fatalf("expected checkin failed error, got %v", err)
	}
	if collector.lastFailure() != "conf-2026:sheet_error" {
		t.Errorf("lastFailure = %q", collector.lastFailure())
	}
}

// TestService_CheckIn_RowVanishedDuringWrite は参照後に行が消えた場合のエラーを検証する。
func TestService_CheckIn_RowVanishedDuringWrite(t *testing.T) {
	directory := uncheckedAttendeeDirectory()
	directory.checkInFn = func(ctx context.Context, conf *model.Conference, row int64, staffName string, at time.Time) (bool, error) {
		return false, nil
	}
	svc := NewService(activeConferenceStore(""), directory, &mockEventRepo{}, newMockNotifier(), &mockCollector{}, 0)

	_, err := svc.CheckIn(context.Background(), staffIdentity(), 42)
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeAttendeeNotFound {
		t.Errorf("expected attendee not found error, got %v", err)
	}
}

// TestService_CheckIn_EventRecordFailure_StillSucceeds は監査記録失敗でもチェックインが成立することを検証する。
func TestService_CheckIn_EventRecordFailure_StillSucceeds(t *testing.T) {
	events := &mockEventRepo{
		recordFn: func(ctx context.Context, event *model.CheckinEvent) error {
			return errors.New("db down")
		},
	}
	collector := &mockCollector{}
	svc := NewService(activeConferenceStore(""), uncheckedAttendeeDirectory(), events, newMockNotifier(), collector, 0)

	result, err := svc.CheckIn(context.Background(), staffIdentity(), 42)
	if err != nil {
		t.Fatalf("CheckIn should succeed despite audit failure: %v", err)
	}
	if result == nil || result.AttendeeName != "山田太郎" {
		t.Errorf("result = %+v", result)
	}
	if len(collector.successes) != 1 {
		t.Errorf("collector.successes = %v", collector.successes)
	}
}

// TestService_ListEvents_Delegates は監査記録一覧がリポジトリへ委譲されることを検証する。
func TestService_ListEvents_Delegates(t *testing.T) {
	want := []*model.CheckinEvent{
		{ID: "event-1", ConferenceID: "conf-2026", Row: 42},
	}
	var gotLimit int
	events := &mockEventRepo{
		listFn: func(ctx context.Context, conferenceID string, limit int) ([]*model.CheckinEvent, error) {
			gotLimit = limit
			return want, nil
		},
	}
	svc := NewService(activeConferenceStore(""), uncheckedAttendeeDirectory(), events, newMockNotifier(), &mockCollector{}, 0)

	got, err := svc.ListEvents(context.Background(), "conf-2026", 50)
	if err != nil {
		t.Fatalf("ListEvents failed: %v", err)
	}
	if len(got) != 1 || got[0].ID != "event-1" {
		t.Errorf("got = %v", got)
	}
	if gotLimit != 50 {
		t.Errorf("limit = %d, want 50", gotLimit)
	}
}
