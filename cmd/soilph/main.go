// Command soilph は土壌 pH データの重回帰分析を実行します。
//
//	soilph analyze --config soilph.yaml
//	soilph inspect --data soil.csv
//	soilph fit --data soil.csv --formula "pH_reading ~ fertilizer_kg_ha + C(Crop)"
//	soilph pdf output/soil_ph_report.md
//	soilph config init
package main

import (
	"io"
	"log/slog"
	"os"

	"github.com/YuminosukeSato/soilph/pkg/log"
)

func main() {
	os.Exit(runMain(os.Args[1:], os.Stdout, os.Stderr))
}

// runMain はコマンドを実行して終了コードを返す。
// 失敗はスタックトレース付きで slog に記録される。
func runMain(args []string, stdout, stderr io.Writer) int {
	// 設定を読む前に失敗しても記録できるよう既定のロガーを先に用意する
	log.SetupLoggerTo(stderr, "info", "console")

	root := newRootCmd()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)
	if err := root.Execute(); err != nil {
		slog.Error("command failed", log.ErrAttr(err))
		return 1
	}
	return 0
}
