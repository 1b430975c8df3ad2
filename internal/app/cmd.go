package app

// Command はアプリケーションの起動モードを表す。
// 単一バイナリをコンテナのエントリポイントとし、第1引数でモードを切り替える。
type Command string

const (
	// CommandServe はAPIサーバーモードで起動することを示す。
	// ポータル・設定・在庫管理のAPIとページ配信を1つのサーバーで提供する。
	CommandServe Command = "serve"
	// CommandMigrate はデータベースマイグレーションを実行することを示す。
	// 設定テーブルと在庫管理テーブルのスキーマをPostgreSQLに適用する。
	CommandMigrate Command = "migrate"
	// CommandHealthcheck はヘルスチェックを実行することを示す。
	// distroless環境でのDockerヘルスチェック用。設定の読み込みを行わず、/healthのみを確認する。
	CommandHealthcheck Command = "healthcheck"
)

// ParseCommand はコマンドライン引数からサブコマンドを解析する。
// 引数が空またはサポート外のコマンドの場合はCommandServeを返す。
func ParseCommand(args []string) Command {
	if len(args) == 0 {
		return CommandServe
	}

	switch args[0] {
	case "serve":
		return CommandServe
	case "migrate":
		return CommandMigrate
	case "healthcheck":
		return CommandHealthcheck
	default:
		return CommandServe
	}
}
