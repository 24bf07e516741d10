package repository

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dskst/voxntry-sub001/internal/model"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// SheetsDirectoryRepoはDirectoryRepositoryインターフェースを満たすことを検証
func TestSheetsDirectoryRepo_ImplementsInterface(t *testing.T) {
	var _ DirectoryRepository = (*SheetsDirectoryRepo)(nil)
}

// NewSheetsDirectoryRepoが正しく初期化されることを検証
func TestNewSheetsDirectoryRepo_Initializes(t *testing.T) {
	repo := NewSheetsDirectoryRepo(nil)
	if repo == nil {
		t.Fatal("expected non-nil repo")
	}
}

// テスト用のSheetsサービスをローカルのhttptestサーバーに向けて生成する
func newTestSheetsService(t *testing.T, handler http.Handler) *sheets.Service {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	svc, err := sheets.NewService(context.Background(),
		option.WithEndpoint(server.URL),
		option.WithoutAuthentication())
	if err != nil {
		t.Fatalf("failed to create sheets service: %v", err)
	}
	return svc
}

func testConference() *model.Conference {
	return &model.Conference{
		ID:            "conf-2026",
		Name:          "テストカンファレンス2026",
		SpreadsheetID: "test-sheet",
		SheetName:     "参加者一覧",
		Columns:       model.DefaultColumnMapping(),
		Active:        true,
	}
}

// FetchSnapshotがシートの行をAttendeeに変換し空行をスキップすることを検証
func TestFetchSnapshot_DecodesRowsAndSkipsBlanks(t *testing.T) {
	var requestedRange string
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("unexpected method: %s", r.Method)
		}
		parts := strings.Split(r.URL.Path, "/values/")
		if len(parts) == 2 {
			requestedRange = parts[1]
		}
		resp := sheets.ValueRange{
			Values: [][]interface{}{
				{"山田太郎", "やまだたろう", "テスト株式会社", "ノベルティ,Tシャツ", "FALSE", "", "", "スピーカー", "L", "ステッカー", "", "TRUE"},
				{"", "", "", "", "", "", "", "", "", "", "", ""},
				{"鈴木花子", "すずきはなこ", "", "懇親会", "TRUE", "2026/08/20 10:30:00", "受付スタッフA", "", "M", "", "アレルギー対応", "FALSE"},
			},
		}
		if err := json.NewEncoder(w).Encode(&resp); err != nil {
			t.Errorf("failed to encode response: %v", err)
		}
	})

	repo := NewSheetsDirectoryRepo(newTestSheetsService(t, handler))
	attendees, err := repo.FetchSnapshot(context.Background(), testConference())
	if err != nil {
		t.Fatalf("FetchSnapshot failed: %v", err)
	}

	if requestedRange != "'参加者一覧'!A2:L" {
		t.Errorf("requested range = %q, want %q", requestedRange, "'参加者一覧'!A2:L")
	}
	if len(attendees) != 2 {
		t.Fatalf("len(attendees) = %d, want 2", len(attendees))
	}

	first := attendees[0]
	if first.Row != 2 {
		t.Errorf("first.Row = %d, want 2", first.Row)
	}
	if first.Name != "山田太郎" {
		t.Errorf("first.Name = %q, want %q", first.Name, "山田太郎")
	}
	if len(first.Items) != 2 || first.Items[0] != "ノベルティ" || first.Items[1] != "Tシャツ" {
		t.Errorf("first.Items = %v, want [ノベルティ Tシャツ]", first.Items)
	}
	if first.CheckedIn {
		t.Error("first.CheckedIn = true, want false")
	}
	if !first.AttendsReception {
		t.Error("first.AttendsReception = false, want true")
	}

	// 空行をスキップしても行番号はシート上の位置を維持する
	second := attendees[1]
	if second.Row != 4 {
		t.Errorf("second.Row = %d, want 4", second.Row)
	}
	if !second.CheckedIn {
		t.Error("second.CheckedIn = false, want true")
	}
	if second.StaffName != "受付スタッフA" {
		t.Errorf("second.StaffName = %q, want %q", second.StaffName, "受付スタッフA")
	}
}

// FetchSnapshotがAPIエラーをラップして返すことを検証
func TestFetchSnapshot_APIError_ReturnsError(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"code":403,"message":"forbidden"}}`, http.StatusForbidden)
	})

	repo := NewSheetsDirectoryRepo(newTestSheetsService(t, handler))
	_, err := repo.FetchSnapshot(context.Background(), testConference())
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if !strings.Contains(err.Error(), "failed to fetch directory sheet") {
		t.Errorf("unexpected error message: %v", err)
	}
}

// CheckInがデータ開始行より前の行番号を存在しない行として扱うことを検証
func TestCheckIn_RowBeforeDataStart_ReturnsNotFound(t *testing.T) {
	repo := NewSheetsDirectoryRepo(nil)

	ok, err := repo.CheckIn(context.Background(), testConference(), 1, "受付スタッフA", time.Now())
	if err != nil {
		t.Fatalf("CheckIn failed: %v", err)
	}
	if ok {
		t.Error("ok = true, want false")
	}
}

// CheckInが空行を存在しない行として扱い書き込みを行わないことを検証
func TestCheckIn_EmptyRow_ReturnsNotFound(t *testing.T) {
	var batchUpdateCalled bool
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.Contains(r.URL.Path, ":batchUpdate") {
			batchUpdateCalled = true
			if err := json.NewEncoder(w).Encode(&sheets.BatchUpdateValuesResponse{}); err != nil {
				t.Errorf("failed to encode response: %v", err)
			}
			return
		}
		if err := json.NewEncoder(w).Encode(&sheets.ValueRange{}); err != nil {
			t.Errorf("failed to encode response: %v", err)
		}
	})

	repo := NewSheetsDirectoryRepo(newTestSheetsService(t, handler))
	ok, err := repo.CheckIn(context.Background(), testConference(), 10, "受付スタッフA", time.Now())
	if err != nil {
		t.Fatalf("CheckIn failed: %v", err)
	}
	if ok {
		t.Error("ok = true, want false")
	}
	if batchUpdateCalled {
		t.Error("batch update should not be called for empty row")
	}
}

// CheckInがチェックイン済みフラグ・時刻・担当者名の3セルを書き込むことを検証
func TestCheckIn_WritesCheckinCells(t *testing.T) {
	var batchReq sheets.BatchUpdateValuesRequest
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.Contains(r.URL.Path, ":batchUpdate") {
			if err := json.NewDecoder(r.Body).Decode(&batchReq); err != nil {
				t.Errorf("failed to decode batch request: %v", err)
			}
			if err := json.NewEncoder(w).Encode(&sheets.BatchUpdateValuesResponse{}); err != nil {
				t.Errorf("failed to encode response: %v", err)
			}
			return
		}
		resp := sheets.ValueRange{
			Values: [][]interface{}{
				{"山田太郎", "やまだたろう", "テスト株式会社", "", "FALSE"},
			},
		}
		if err := json.NewEncoder(w).Encode(&resp); err != nil {
			t.Errorf("failed to encode response: %v", err)
		}
	})

	repo := NewSheetsDirectoryRepo(newTestSheetsService(t, handler))
	at := time.Date(2026, 8, 21, 9, 30, 0, 0, time.UTC)
	ok, err := repo.CheckIn(context.Background(), testConference(), 5, "受付スタッフB", at)
	if err != nil {
		t.Fatalf("CheckIn failed: %v", err)
	}
	if !ok {
		t.Fatal("ok = false, want true")
	}

	if batchReq.ValueInputOption != "USER_ENTERED" {
		t.Errorf("ValueInputOption = %q, want USER_ENTERED", batchReq.ValueInputOption)
	}
	if len(batchReq.Data) != 3 {
		t.Fatalf("len(batchReq.Data) = %d, want 3", len(batchReq.Data))
	}

	wantRanges := []string{"'参加者一覧'!E5", "'参加者一覧'!F5", "'参加者一覧'!G5"}
	wantValues := []string{"TRUE", "2026/08/21 09:30:00", "受付スタッフB"}
	for i, data := range batchReq.Data {
		if data.Range != wantRanges[i] {
			t.Errorf("Data[%d].Range = %q, want %q", i, data.Range, wantRanges[i])
		}
		if len(data.Values) != 1 || len(data.Values[0]) != 1 {
			t.Fatalf("Data[%d].Values has unexpected shape: %v", i, data.Values)
		}
		if got := data.Values[0][0]; got != wantValues[i] {
			t.Errorf("Data[%d].Values = %v, want %q", i, got, wantValues[i])
		}
	}
}

// decodeAttendeeRowが列マッピングに従って各フィールドを変換することを検証
func TestDecodeAttendeeRow_MapsAllFields(t *testing.T) {
	m := model.DefaultColumnMapping()
	cells := []interface{}{
		"山田太郎", "やまだたろう", "テスト株式会社", "ノベルティ、Tシャツ",
		"済", "2026/08/20 10:30:00", "受付スタッフA", "スピーカー", "L",
		"ステッカー,ピンバッジ", "車椅子利用", "yes",
	}

	a := decodeAttendeeRow(m, 7, cells)

	if a.Row != 7 {
		t.Errorf("a.Row = %d, want 7", a.Row)
	}
	if a.NameKana != "やまだたろう" {
		t.Errorf("a.NameKana = %q, want %q", a.NameKana, "やまだたろう")
	}
	if len(a.Items) != 2 {
		t.Errorf("len(a.Items) = %d, want 2", len(a.Items))
	}
	if !a.CheckedIn {
		t.Error("a.CheckedIn = false, want true")
	}
	if a.CheckedInAt != "2026/08/20 10:30:00" {
		t.Errorf("a.CheckedInAt = %q", a.CheckedInAt)
	}
	if len(a.Novelties) != 2 || a.Novelties[1] != "ピンバッジ" {
		t.Errorf("a.Novelties = %v", a.Novelties)
	}
	if a.Memo != "車椅子利用" {
		t.Errorf("a.Memo = %q", a.Memo)
	}
	if !a.AttendsReception {
		t.Error("a.AttendsReception = false, want true")
	}
}

// 短い行では範囲外の列が空値になることを検証
func TestDecodeAttendeeRow_ShortRow_MissingColumnsAreEmpty(t *testing.T) {
	m := model.DefaultColumnMapping()
	a := decodeAttendeeRow(m, 3, []interface{}{"山田太郎"})

	if a.Name != "山田太郎" {
		t.Errorf("a.Name = %q, want %q", a.Name, "山田太郎")
	}
	if a.NameKana != "" || a.Affiliation != "" {
		t.Errorf("missing columns should be empty: kana=%q affiliation=%q", a.NameKana, a.Affiliation)
	}
	if a.Items != nil {
		t.Errorf("a.Items = %v, want nil", a.Items)
	}
	if a.CheckedIn {
		t.Error("a.CheckedIn = true, want false")
	}
}

// cellStringがセル値を文字列化しトリムすることを検証
func TestCellString(t *testing.T) {
	cells := []interface{}{" 山田太郎 ", nil, 42, true}

	tests := []struct {
		name string
		idx  int
		want string
	}{
		{"文字列はトリムされる", 0, "山田太郎"},
		{"nilセルは空文字", 1, ""},
		{"数値は文字列化される", 2, "42"},
		{"真偽値は文字列化される", 3, "true"},
		{"範囲外は空文字", 10, ""},
		{"負のインデックスは空文字", -1, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := cellString(cells, tt.idx); got != tt.want {
				t.Errorf("cellString(cells, %d) = %q, want %q", tt.idx, got, tt.want)
			}
		})
	}
}

// parseSheetBoolがシート上の真偽値表現を受け付けることを検証
func TestParseSheetBool(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"TRUE", true},
		{"true", true},
		{" True ", true},
		{"1", true},
		{"yes", true},
		{"済", true},
		{"✓", true},
		{"FALSE", false},
		{"0", false},
		{"", false},
		{"未", false},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := parseSheetBool(tt.input); got != tt.want {
				t.Errorf("parseSheetBool(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

// splitListがカンマと読点の両方で分割することを検証
func TestSplitList(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{"空文字はnil", "", nil},
		{"空白のみはnil", "   ", nil},
		{"カンマ区切り", "ノベルティ,Tシャツ", []string{"ノベルティ", "Tシャツ"}},
		{"読点区切り", "ノベルティ、Tシャツ", []string{"ノベルティ", "Tシャツ"}},
		{"混在と空白", "ノベルティ, Tシャツ、 ステッカー", []string{"ノベルティ", "Tシャツ", "ステッカー"}},
		{"末尾区切り文字", "ノベルティ,", []string{"ノベルティ"}},
		{"単一要素", "懇親会", []string{"懇親会"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := splitList(tt.input)
			if len(got) != len(tt.want) {
				t.Fatalf("splitList(%q) = %v, want %v", tt.input, got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("splitList(%q)[%d] = %q, want %q", tt.input, i, got[i], tt.want[i])
				}
			}
		})
	}
}

// columnLetterが列インデックスをA1記法へ変換することを検証
func TestColumnLetter(t *testing.T) {
	tests := []struct {
		idx  int
		want string
	}{
		{0, "A"},
		{11, "L"},
		{25, "Z"},
		{26, "AA"},
		{27, "AB"},
		{51, "AZ"},
		{52, "BA"},
		{701, "ZZ"},
		{702, "AAA"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := columnLetter(tt.idx); got != tt.want {
				t.Errorf("columnLetter(%d) = %q, want %q", tt.idx, got, tt.want)
			}
		})
	}
}

// escapeSheetNameがシート名をクォートしシングルクォートを二重化することを検証
func TestEscapeSheetName(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"Sheet1", "'Sheet1'"},
		{"参加者一覧", "'参加者一覧'"},
		{"It's a sheet", "'It''s a sheet'"},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := escapeSheetName(tt.input); got != tt.want {
				t.Errorf("escapeSheetName(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

// sheetNameOfが未設定時にデフォルトのシート名を返すことを検証
func TestSheetNameOf(t *testing.T) {
	conf := testConference()
	if got := sheetNameOf(conf); got != "参加者一覧" {
		t.Errorf("sheetNameOf = %q, want %q", got, "参加者一覧")
	}

	conf.SheetName = ""
	if got := sheetNameOf(conf); got != defaultSheetName {
		t.Errorf("sheetNameOf = %q, want %q", got, defaultSheetName)
	}
}
