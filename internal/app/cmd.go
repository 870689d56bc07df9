package app

import (
	"fmt"
	"io"
	"strings"
)

// Command はアプリケーションの起動モードを表す。
type Command string

const (
	// CommandServe はページと認証ルートを提供するWebサーバーを起動する。
	CommandServe Command = "serve"
	// CommandWorker は期限切れセッション・検証トークンのクリーンアップを起動する。
	CommandWorker Command = "worker"
	// CommandMigrate はデータベースマイグレーションを適用して終了する。
	CommandMigrate Command = "migrate"
	// CommandHealthcheck は起動中のサーバーの/healthを確認して終了する。
	// distroless環境でのDockerヘルスチェック用。
	CommandHealthcheck Command = "healthcheck"
	// CommandHelp は使い方を表示して終了する。
	CommandHelp Command = "help"
)

// commands は受け付けるサブコマンドと説明の一覧。表示順を保つためスライスで持つ。
var commands = []struct {
	cmd  Command
	desc string
}{
	{CommandServe, "start the web server (default)"},
	{CommandWorker, "purge expired sessions and verification tokens periodically"},
	{CommandMigrate, "apply database migrations and exit"},
	{CommandHealthcheck, "probe GET /health on SERVER_PORT and exit"},
	{CommandHelp, "show this help"},
}

// ParseCommand はコマンドライン引数からサブコマンドを解析する。
// 引数が空の場合はCommandServeを返す。未知のサブコマンドはエラーとする。
// 2つ目以降の引数は無視する。
func ParseCommand(args []string) (Command, error) {
	if len(args) == 0 {
		return CommandServe, nil
	}

	switch name := args[0]; name {
	case "-h", "--help":
		return CommandHelp, nil
	default:
		for _, c := range commands {
			if string(c.cmd) == name {
				return c.cmd, nil
			}
		}
		return "", fmt.Errorf("unknown command %q", name)
	}
}

// writeUsage は使い方を書き込む。
func writeUsage(w io.Writer) {
	var b strings.Builder
	b.WriteString("usage: authpage [command]\n\ncommands:\n")
	for _, c := range commands {
		fmt.Fprintf(&b, "  %-12s %s\n", c.cmd, c.desc)
	}
	io.WriteString(w, b.String())
}
