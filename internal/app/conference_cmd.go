package app

import (
	"context"
	"flag"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/dskst/voxntry-sub001/internal/conference"
	"github.com/dskst/voxntry-sub001/internal/config"
	"github.com/dskst/voxntry-sub001/internal/database"
	"github.com/dskst/voxntry-sub001/internal/model"
	"github.com/dskst/voxntry-sub001/internal/repository"
	"github.com/dskst/voxntry-sub001/internal/security"
)

const conferenceUsage = `Usage: voxntry conference <subcommand> [flags]

Subcommands:
  register  カンファレンスを登録する
  rotate    合言葉を差し替える
  list      登録済みカンファレンスを一覧表示する
`

// runConference はカンファレンス管理CLIを実行する。
// デプロイ先でSQLを直接叩かずにカンファレンスの登録・運用を行うための
// 運用者向けサブコマンド。
func runConference(w io.Writer, cfg *config.Config, args []string) error {
	if len(args) == 0 {
		fmt.Fprint(w, conferenceUsage)
		return fmt.Errorf("conference: subcommand required")
	}

	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	confRepo := repository.NewPostgresConferenceRepo(db)
	service := conference.NewService(confRepo, security.NewSSRFGuard())

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	switch args[0] {
	case "register":
		return runConferenceRegister(ctx, w, service, args[1:])
	case "rotate":
		return runConferenceRotate(ctx, w, service, args[1:])
	case "list":
		return runConferenceList(ctx, w, service)
	default:
		fmt.Fprint(w, conferenceUsage)
		return fmt.Errorf("conference: unknown subcommand %q", args[0])
	}
}

// runConferenceRegister はカンファレンスを1件登録する。
func runConferenceRegister(ctx context.Context, w io.Writer, service *conference.Service, args []string) error {
	fs := flag.NewFlagSet("conference register", flag.ContinueOnError)
	fs.SetOutput(w)

	var input conference.RegisterInput
	fs.StringVar(&input.ID, "id", "", "カンファレンスID（必須）")
	fs.StringVar(&input.Name, "name", "", "カンファレンス名（必須）")
	fs.StringVar(&input.SpreadsheetID, "spreadsheet", "", "名簿スプレッドシートのID（必須）")
	fs.StringVar(&input.SheetName, "sheet", "", "シート名（省略時はSheet1）")
	fs.StringVar(&input.StaffPassphrase, "staff-passphrase", "", "スタッフ用合言葉（必須）")
	fs.StringVar(&input.AdminPassphrase, "admin-passphrase", "", "管理者用合言葉（任意）")
	fs.StringVar(&input.WebhookURL, "webhook", "", "チェックイン通知先Webhook URL（任意）")

	if err := fs.Parse(args); err != nil {
		return err
	}

	conf, err := service.Register(ctx, input)
	if err != nil {
		return fmt.Errorf("conference register: %w", err)
	}

	fmt.Fprintf(w, "registered conference %q (%s)\n", conf.Name, conf.ID)
	return nil
}

// runConferenceRotate は指定権限区分の合言葉を差し替える。
func runConferenceRotate(ctx context.Context, w io.Writer, service *conference.Service, args []string) error {
	fs := flag.NewFlagSet("conference rotate", flag.ContinueOnError)
	fs.SetOutput(w)

	var (
		id         string
		role       string
		passphrase string
	)
	fs.StringVar(&id, "id", "", "カンファレンスID（必須）")
	fs.StringVar(&role, "role", "staff", "権限区分（staff または admin）")
	fs.StringVar(&passphrase, "passphrase", "", "新しい合言葉（必須）")

	if err := fs.Parse(args); err != nil {
		return err
	}

	staffRole := model.StaffRole(role)
	if !staffRole.Valid() {
		return fmt.Errorf("conference rotate: invalid role %q (staff or admin)", role)
	}

	if err := service.RotatePassphrase(ctx, id, staffRole, passphrase); err != nil {
		return fmt.Errorf("conference rotate: %w", err)
	}

	fmt.Fprintf(w, "rotated %s passphrase for conference %s\n", staffRole, id)
	return nil
}

// runConferenceList は登録済みカンファレンスを一覧表示する。
func runConferenceList(ctx context.Context, w io.Writer, service *conference.Service) error {
	conferences, err := service.List(ctx)
	if err != nil {
		return fmt.Errorf("conference list: %w", err)
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tSPREADSHEET\tACTIVE")
	for _, conf := range conferences {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%t\n", conf.ID, conf.Name, conf.SpreadsheetID, conf.Active)
	}
	return tw.Flush()
}
