package app

import (
	"sort"
	"strings"
)

// Command はバイナリのサブコマンド。
type Command string

const (
	// CommandServe はHTTPサーバーを起動する。引数なしの既定値。
	CommandServe Command = "serve"
	// CommandWorker は期限切れセッションの定期クリーンアップを起動する。
	CommandWorker Command = "worker"
	// CommandMigrate は埋め込みマイグレーションを適用して終了する。
	CommandMigrate Command = "migrate"
	// CommandHealthcheck はローカルの/healthを叩いて終了する。シェルのないdistrolessイメージ用。
	CommandHealthcheck Command = "healthcheck"
)

var commands = map[string]Command{
	string(CommandServe):       CommandServe,
	string(CommandWorker):      CommandWorker,
	string(CommandMigrate):     CommandMigrate,
	string(CommandHealthcheck): CommandHealthcheck,
}

// ParseCommand はos.Args[1:]の先頭要素をサブコマンドとして解釈する。
// 空や未知の値はCommandServeとし、2番目以降の要素は無視する。
func ParseCommand(args []string) Command {
	if len(args) == 0 {
		return CommandServe
	}
	if cmd, ok := commands[strings.TrimSpace(args[0])]; ok {
		return cmd
	}
	return CommandServe
}

// needsConfig は環境変数の設定とDB接続を必要とするかを返す。
func (c Command) needsConfig() bool {
	return c != CommandHealthcheck
}

// Usage はサポートするサブコマンドの一覧を返す。
func Usage() string {
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	return "usage: issuetracker [" + strings.Join(names, "|") + "]"
}
