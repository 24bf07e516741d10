package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/dskst/voxntry-sub001/internal/app"
)

func main() {
	// ローカル開発用の.envを読み込む。存在しない環境（コンテナ等）では何もしない。
	_ = godotenv.Load()

	if err := app.Run(os.Stdout, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "voxntry: %v\n", err)
		os.Exit(1)
	}
}
