package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"github.com/dskst/voxntry-sub001/internal/model"
)

const defaultSheetName = "Sheet1"

// チェックイン時刻のシート上の表記。運営がそのまま読める形式にする。
const checkinTimeFormat = "2006/01/02 15:04:05"

// NewSheetsService はGoogle Sheets APIクライアントを生成する。
// credentialsFileが空の場合はApplication Default Credentialsを使う。
func NewSheetsService(ctx context.Context, credentialsFile string) (*sheets.Service, error) {
	opts := []option.ClientOption{option.WithScopes(sheets.SpreadsheetsScope)}
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	svc, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets service: %w", err)
	}
	return svc, nil
}

// SheetsDirectoryRepo はGoogleスプレッドシートを名簿ストアとして使うリポジトリ。
// 1カンファレンス=1シートで、レイアウトはカンファレンスごとのColumnMappingに従う。
type SheetsDirectoryRepo struct {
	svc *sheets.Service
}

// NewSheetsDirectoryRepo はSheetsDirectoryRepoを生成する。
func NewSheetsDirectoryRepo(svc *sheets.Service) *SheetsDirectoryRepo {
	return &SheetsDirectoryRepo{svc: svc}
}

// FetchSnapshot は名簿の全行をシート上の並び順のまま返す。
// 氏名も所属も空の行（区切り用の空行など）はスキップするが、
// 行番号はシート上の位置から採番するためスキップの影響を受けない。
func (r *SheetsDirectoryRepo) FetchSnapshot(ctx context.Context, conf *model.Conference) ([]model.Attendee, error) {
	m := conf.Columns.OrDefault()
	readRange := fmt.Sprintf("%s!A%d:%s",
		escapeSheetName(sheetNameOf(conf)), m.DataStartRow, columnLetter(m.MaxIndex()))

	resp, err := r.svc.Spreadsheets.Values.Get(conf.SpreadsheetID, readRange).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to fetch directory sheet: %w", err)
	}

	attendees := make([]model.Attendee, 0, len(resp.Values))
	for i, cells := range resp.Values {
		a := decodeAttendeeRow(m, m.DataStartRow+int64(i), cells)
		if a.Name == "" && a.Affiliation == "" {
			continue
		}
		attendees = append(attendees, a)
	}
	return attendees, nil
}

// CheckIn は指定行にチェックイン済みフラグ・時刻・担当者名を書き込む。
// 書き込み前に行の存在を確認し、空行や範囲外の行は(false, nil)を返す。
func (r *SheetsDirectoryRepo) CheckIn(ctx context.Context, conf *model.Conference, row int64, staffName string, at time.Time) (bool, error) {
	m := conf.Columns.OrDefault()
	if row < m.DataStartRow {
		return false, nil
	}

	sheet := escapeSheetName(sheetNameOf(conf))
	readRange := fmt.Sprintf("%s!A%d:%s%d", sheet, row, columnLetter(m.MaxIndex()), row)
	resp, err := r.svc.Spreadsheets.Values.Get(conf.SpreadsheetID, readRange).Context(ctx).Do()
	if err != nil {
		return false, fmt.Errorf("failed to read attendee row: %w", err)
	}
	if len(resp.Values) == 0 || rowIsEmpty(resp.Values[0]) {
		return false, nil
	}

	req := &sheets.BatchUpdateValuesRequest{
		ValueInputOption: "USER_ENTERED",
		Data: []*sheets.ValueRange{
			{
				Range:  fmt.Sprintf("%s!%s%d", sheet, columnLetter(m.CheckedIn), row),
				Values: [][]interface{}{{"TRUE"}},
			},
			{
				Range:  fmt.Sprintf("%s!%s%d", sheet, columnLetter(m.CheckedInAt), row),
				Values: [][]interface{}{{at.Format(checkinTimeFormat)}},
			},
			{
				Range:  fmt.Sprintf("%s!%s%d", sheet, columnLetter(m.StaffName), row),
				Values: [][]interface{}{{staffName}},
			},
		},
	}
	if _, err := r.svc.Spreadsheets.Values.BatchUpdate(conf.SpreadsheetID, req).Context(ctx).Do(); err != nil {
		return false, fmt.Errorf("failed to write checkin cells: %w", err)
	}
	return true, nil
}

// decodeAttendeeRow はシートの1行をAttendeeへ変換する。
// itemsとnoveltiesは区切り文字で分割し、checkedInは文字列表現から真偽値へ変換する。
func decodeAttendeeRow(m model.ColumnMapping, rowNum int64, cells []interface{}) model.Attendee {
	return model.Attendee{
		Row:              rowNum,
		Name:             cellString(cells, m.Name),
		NameKana:         cellString(cells, m.NameKana),
		Affiliation:      cellString(cells, m.Affiliation),
		Items:            splitList(cellString(cells, m.Items)),
		CheckedIn:        parseSheetBool(cellString(cells, m.CheckedIn)),
		CheckedInAt:      cellString(cells, m.CheckedInAt),
		StaffName:        cellString(cells, m.StaffName),
		Attributes:       cellString(cells, m.Attributes),
		BodySize:         cellString(cells, m.BodySize),
		Novelties:        splitList(cellString(cells, m.Novelties)),
		Memo:             cellString(cells, m.Memo),
		AttendsReception: parseSheetBool(cellString(cells, m.AttendsReception)),
	}
}

// cellString は行内の指定列の値を文字列として取り出す。範囲外は空文字。
func cellString(cells []interface{}, idx int) string {
	if idx < 0 || idx >= len(cells) {
		return ""
	}
	switch v := cells[idx].(type) {
	case string:
		return strings.TrimSpace(v)
	case nil:
		return ""
	default:
		return strings.TrimSpace(fmt.Sprint(v))
	}
}

// parseSheetBool はシート上の文字列表現を真偽値へ変換する。
// チェックボックスのTRUE/FALSEに加えて、手入力されがちな表記も受け付ける。
func parseSheetBool(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "1", "yes", "済", "✓":
		return true
	}
	return false
}

// splitList は区切り文字（カンマ・読点）で連結されたセル値を分割する。
func splitList(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == '、'
	})
	var out []string
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func rowIsEmpty(cells []interface{}) bool {
	for i := range cells {
		if cellString(cells, i) != "" {
			return false
		}
	}
	return true
}

func sheetNameOf(conf *model.Conference) string {
	if conf.SheetName == "" {
		return defaultSheetName
	}
	return conf.SheetName
}

// escapeSheetName はA1記法で安全に使えるようシート名をクォートする。
func escapeSheetName(name string) string {
	return "'" + strings.ReplaceAll(name, "'", "''") + "'"
}

// columnLetter は0始まりの列インデックスをA1記法の列名へ変換する。
func columnLetter(idx int) string {
	letters := ""
	for idx >= 0 {
		letters = string(rune('A'+idx%26)) + letters
		idx = idx/26 - 1
	}
	return letters
}

// compile-time interface check
var _ DirectoryRepository = (*SheetsDirectoryRepo)(nil)
